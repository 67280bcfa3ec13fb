package shm

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Snapshot is every record decoded from a region, as the FPGA would see it.
type Snapshot struct {
	MCU         MCUData            `yaml:"mcu_info" json:"mcu_info"`
	Pressure    PressureData       `yaml:"pressure" json:"pressure"`
	Humidity    HumidityData       `yaml:"humidity" json:"humidity"`
	UV          UVData             `yaml:"uv" json:"uv"`
	IMU         IMUData            `yaml:"imu" json:"imu"`
	Control     IMUControl         `yaml:"imu_control" json:"imu_control"`
	Calibration IMUCalibrationData `yaml:"imu_calibration" json:"imu_calibration"`
}

func Dump(r io.ReaderAt) (Snapshot, error) {
	var s Snapshot
	if err := Fetch(r, &s.MCU); err != nil {
		return Snapshot{}, err
	}
	if err := Fetch(r, &s.Pressure); err != nil {
		return Snapshot{}, err
	}
	if err := Fetch(r, &s.Humidity); err != nil {
		return Snapshot{}, err
	}
	if err := Fetch(r, &s.UV); err != nil {
		return Snapshot{}, err
	}
	if err := Fetch(r, &s.IMU); err != nil {
		return Snapshot{}, err
	}
	if err := Fetch(r, &s.Control); err != nil {
		return Snapshot{}, err
	}
	if err := Fetch(r, &s.Calibration); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// WriteYAML renders the snapshot for humans.
func (s Snapshot) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
