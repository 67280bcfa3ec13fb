package shm

// Records published into the shared region. Every field has an explicit
// width so the encoded size never depends on Go struct padding; the layout
// is little-endian, matching the MCU.

const (
	FirmwareID      uint32 = 0x10
	FirmwareVersion uint32 = 0x171017 // 0xYYMMDD
)

// Values of IMUControl.MagOffsetWrFlag.
const (
	OffsetWriteDisable uint32 = 0
	OffsetWriteEnable  uint32 = 1
)

type MCUData struct {
	ID      uint32 `yaml:"id" json:"id"`
	Version uint32 `yaml:"version" json:"version"`
}

type PressureData struct {
	Altitude    float32 `yaml:"altitude" json:"altitude"`
	Pressure    float32 `yaml:"pressure" json:"pressure"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
}

type HumidityData struct {
	Humidity    float32 `yaml:"humidity" json:"humidity"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
}

type UVData struct {
	UV float32 `yaml:"uv" json:"uv"`
}

// IMUData carries the raw accel (g), gyro (deg/s) and mag (gauss) samples
// plus the derived angles in degrees, whichever estimator produced them.
type IMUData struct {
	Yaw    float32 `yaml:"yaw" json:"yaw"`
	Pitch  float32 `yaml:"pitch" json:"pitch"`
	Roll   float32 `yaml:"roll" json:"roll"`
	AccelX float32 `yaml:"accel_x" json:"accel_x"`
	AccelY float32 `yaml:"accel_y" json:"accel_y"`
	AccelZ float32 `yaml:"accel_z" json:"accel_z"`
	GyroX  float32 `yaml:"gyro_x" json:"gyro_x"`
	GyroY  float32 `yaml:"gyro_y" json:"gyro_y"`
	GyroZ  float32 `yaml:"gyro_z" json:"gyro_z"`
	MagX   float32 `yaml:"mag_x" json:"mag_x"`
	MagY   float32 `yaml:"mag_y" json:"mag_y"`
	MagZ   float32 `yaml:"mag_z" json:"mag_z"`
}

// IMUControl is written by the FPGA to request a calibration commit and
// cleared by the IMU loop once the request is serviced.
type IMUControl struct {
	MagOffsetWrFlag uint32 `yaml:"mag_offset_wr_flag" json:"mag_offset_wr_flag"`
}

// IMUCalibrationData holds magnetometer offsets in persisted units
// (value x 1000).
type IMUCalibrationData struct {
	MagOffsetX int32 `yaml:"mag_offset_x" json:"mag_offset_x"`
	MagOffsetY int32 `yaml:"mag_offset_y" json:"mag_offset_y"`
	MagOffsetZ int32 `yaml:"mag_offset_z" json:"mag_offset_z"`
}

// Record is the set of types that may be published to or fetched from the
// region. Anything else does not compile.
type Record interface {
	MCUData | PressureData | HumidityData | UVData | IMUData | IMUControl | IMUCalibrationData
}
