package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"creator-mcu/internal/sensors/bmp280"
	"creator-mcu/internal/sensors/hts221"
	"creator-mcu/internal/sensors/lsm9ds1"
	"creator-mcu/internal/sensors/mpl3115a2"
)

type Config struct {
	Firmware FirmwareConfig `yaml:"firmware"`
	PSRAM    PSRAMConfig    `yaml:"psram"`
	Flash    FlashConfig    `yaml:"flash"`
	I2C      I2CConfig      `yaml:"i2c"`
	Sensors  SensorsConfig  `yaml:"sensors"`
	Env      EnvConfig      `yaml:"env"`
	IMU      IMUConfig      `yaml:"imu"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
}

type FirmwareConfig struct {
	ID      uint32 `yaml:"id"`
	Version uint32 `yaml:"version"`
}

// PSRAMConfig selects the shared region. An empty Path keeps the region in
// process memory.
type PSRAMConfig struct {
	Path   string `yaml:"path"`
	Offset int64  `yaml:"offset"`
	Size   int    `yaml:"size"`
}

// FlashConfig selects the calibration page. An empty Path uses an in-memory
// flash array of Size bytes starting at Base.
type FlashConfig struct {
	Path     string `yaml:"path"`
	Base     uint32 `yaml:"base"`
	Size     uint32 `yaml:"size"`
	PageSize int    `yaml:"page_size"`
	PageAddr uint32 `yaml:"page_addr"`
}

type I2CConfig struct {
	Bus string `yaml:"bus"`
}

type SensorsConfig struct {
	Sim bool `yaml:"sim"`

	// Barometer part: mpl3115a2 (default) or bmp280.
	Pressure  string `yaml:"pressure"`
	MPL3115A2 uint16 `yaml:"mpl3115a2_addr"`
	BMP280    uint16 `yaml:"bmp280_addr"`

	HTS221    uint16 `yaml:"hts221_addr"`
	LSM9DS1AG uint16 `yaml:"lsm9ds1_ag_addr"`
	LSM9DS1M  uint16 `yaml:"lsm9ds1_mag_addr"`
}

type EnvConfig struct {
	PreStrobe   time.Duration `yaml:"pre_strobe"`
	StrobePulse time.Duration `yaml:"strobe_pulse"`
	Strobe      StrobeConfig  `yaml:"strobe"`
}

type StrobeConfig struct {
	Enable   bool   `yaml:"enable"`
	Chip     string `yaml:"chip"`
	Line     int    `yaml:"line"`
	LineName string `yaml:"line_name"`
}

type IMUConfig struct {
	Period    time.Duration `yaml:"period"`
	Estimator string        `yaml:"estimator"`
	MaxStep   time.Duration `yaml:"max_step"`
}

type WatchdogConfig struct {
	Enable  bool          `yaml:"enable"`
	Device  string        `yaml:"device"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	File string `yaml:"file"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills in board defaults and rejects inconsistent
// settings. It is safe to call on a zero Config.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Firmware.ID == 0 {
		cfg.Firmware.ID = 0x10
	}
	if cfg.Firmware.Version == 0 {
		cfg.Firmware.Version = 0x171017
	}

	if cfg.PSRAM.Size == 0 {
		cfg.PSRAM.Size = 0x100
	}
	if cfg.PSRAM.Size < 0 {
		return fmt.Errorf("psram.size must be > 0")
	}
	if cfg.PSRAM.Offset < 0 {
		return fmt.Errorf("psram.offset must be >= 0")
	}

	if cfg.Flash.Base == 0 {
		cfg.Flash.Base = 0x80000
	}
	if cfg.Flash.Size == 0 {
		cfg.Flash.Size = 0x80000
	}
	if cfg.Flash.PageSize == 0 {
		cfg.Flash.PageSize = 256
	}
	if cfg.Flash.PageSize < 12 {
		return fmt.Errorf("flash.page_size must be >= 12")
	}
	if cfg.Flash.Size%uint32(cfg.Flash.PageSize) != 0 {
		return fmt.Errorf("flash.size must be a multiple of flash.page_size")
	}
	if cfg.Flash.PageAddr == 0 {
		cfg.Flash.PageAddr = cfg.Flash.Base + cfg.Flash.Size - uint32(cfg.Flash.PageSize)
	}
	if cfg.Flash.PageAddr%uint32(cfg.Flash.PageSize) != 0 {
		return fmt.Errorf("flash.page_addr must be page aligned")
	}
	if cfg.Flash.Path == "" {
		if cfg.Flash.PageAddr < cfg.Flash.Base || cfg.Flash.PageAddr >= cfg.Flash.Base+cfg.Flash.Size {
			return fmt.Errorf("flash.page_addr must lie within flash.base and flash.size")
		}
	}

	if cfg.Sensors.MPL3115A2 == 0 {
		cfg.Sensors.MPL3115A2 = mpl3115a2.DefaultAddress()
	}
	switch cfg.Sensors.Pressure {
	case "":
		cfg.Sensors.Pressure = "mpl3115a2"
	case "mpl3115a2", "bmp280":
	default:
		return fmt.Errorf("sensors.pressure must be 'mpl3115a2' or 'bmp280'")
	}
	if cfg.Sensors.BMP280 == 0 {
		cfg.Sensors.BMP280 = bmp280.DefaultAddress()
	}
	if cfg.Sensors.HTS221 == 0 {
		cfg.Sensors.HTS221 = hts221.DefaultAddress()
	}
	ag, m := lsm9ds1.DefaultAddresses()
	if cfg.Sensors.LSM9DS1AG == 0 {
		cfg.Sensors.LSM9DS1AG = ag
	}
	if cfg.Sensors.LSM9DS1M == 0 {
		cfg.Sensors.LSM9DS1M = m
	}
	if !cfg.Sensors.Sim && cfg.I2C.Bus == "" {
		return fmt.Errorf("i2c.bus is required unless sensors.sim is true")
	}

	if cfg.Env.PreStrobe <= 0 {
		cfg.Env.PreStrobe = 40 * time.Millisecond
	}
	if cfg.Env.StrobePulse <= 0 {
		cfg.Env.StrobePulse = 10 * time.Millisecond
	}
	if cfg.Env.Strobe.Enable {
		if cfg.Env.Strobe.Chip == "" {
			cfg.Env.Strobe.Chip = "/dev/gpiochip0"
		}
		if cfg.Env.Strobe.LineName == "" && cfg.Env.Strobe.Line == 0 {
			cfg.Env.Strobe.Line = 17
		}
		if cfg.Env.Strobe.Line < 0 {
			return fmt.Errorf("env.strobe.line must be >= 0")
		}
	}

	if cfg.IMU.Period <= 0 {
		cfg.IMU.Period = 20 * time.Millisecond
	}
	switch cfg.IMU.Estimator {
	case "":
		cfg.IMU.Estimator = "trig"
	case "trig", "dcm":
	default:
		return fmt.Errorf("imu.estimator must be 'trig' or 'dcm'")
	}
	if cfg.IMU.MaxStep <= 0 {
		cfg.IMU.MaxStep = 200 * time.Millisecond
	}

	if cfg.Watchdog.Enable {
		if cfg.Watchdog.Device == "" {
			cfg.Watchdog.Device = "/dev/watchdog"
		}
		if cfg.Watchdog.Timeout <= 0 {
			cfg.Watchdog.Timeout = 5 * time.Second
		}
		if cfg.Watchdog.Timeout <= cfg.IMU.Period {
			return fmt.Errorf("watchdog.timeout must be longer than imu.period")
		}
	}

	return nil
}
