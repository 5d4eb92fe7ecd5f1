package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const bootstrapPathEnv = "MICROOCPP_CONFIG_FILE"

// Bootstrap carries process-level deployment configuration that is not
// part of the OCPP configuration key space at all: how to reach the
// central system, who this charge point claims to be, and which
// storage.Filesystem backend to construct. This is the split the
// teacher's own services draw between a YAML+env Config and their
// runtime business state.
type Bootstrap struct {
	ChargePoint struct {
		ID              string `yaml:"id" env:"CHARGE_POINT_ID"`
		Vendor          string `yaml:"vendor" env:"CHARGE_POINT_VENDOR"`
		Model           string `yaml:"model" env:"CHARGE_POINT_MODEL"`
		FirmwareVersion string `yaml:"firmwareVersion" env:"CHARGE_POINT_FIRMWARE_VERSION"`
	} `yaml:"chargePoint"`

	Backend struct {
		URL      string `yaml:"url" env:"BACKEND_URL"`
		Password string `yaml:"password" env:"BACKEND_PASSWORD"`
		Token    string `yaml:"token" env:"BACKEND_TOKEN"`
	} `yaml:"backend"`

	Storage struct {
		Driver string `yaml:"driver" env:"STORAGE_DRIVER"` // disk | postgres | redis
		DSN    string `yaml:"dsn" env:"STORAGE_DSN"`
		Dir    string `yaml:"dir" env:"STORAGE_DIR"`
	} `yaml:"storage"`

	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL"`
}

// LoadBootstrap hydrates a Bootstrap from an optional YAML file (path
// taken from MICROOCPP_CONFIG_FILE) and then overrides fields from
// environment variables, exactly the two-phase precedence the
// teacher's backend/libs/config.LoadConfig uses.
func LoadBootstrap() (*Bootstrap, error) {
	b := &Bootstrap{}
	b.Storage.Driver = "disk"
	b.Storage.Dir = "./ocpp-data"
	b.LogLevel = "info"

	if path := os.Getenv(bootstrapPathEnv); path != "" {
		if err := loadYAMLFile(path, b); err != nil {
			return nil, err
		}
	}

	if err := populateFromEnv(reflect.ValueOf(b).Elem(), ""); err != nil {
		return nil, err
	}

	if strings.TrimSpace(b.ChargePoint.ID) == "" {
		return nil, errors.New("config: chargePoint.id is required")
	}
	return b, nil
}

func loadYAMLFile(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

func populateFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		fieldType := t.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if fieldVal.Kind() == reflect.Struct {
			if err := populateFromEnv(fieldVal, prefix); err != nil {
				return err
			}
			continue
		}

		envKey := fieldType.Tag.Get("env")
		if envKey == "" || envKey == "-" {
			continue
		}

		if val, ok := os.LookupEnv(envKey); ok {
			if err := assign(fieldVal, val); err != nil {
				return fmt.Errorf("config: parse %s: %w", envKey, err)
			}
		}
	}
	return nil
}

func assign(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type().String())
	}
	return nil
}
