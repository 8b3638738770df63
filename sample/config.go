package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	serial "github.com/samuelventura/go-comport"
)

type sampleConfig struct {
	Port     portConfig    `mapstructure:"port"`
	Log      logConfig     `mapstructure:"log"`
	Command  string        `mapstructure:"command"`
	Interval time.Duration `mapstructure:"interval"`
	Loopback bool          `mapstructure:"loopback"`
}

type portConfig struct {
	Path         string        `mapstructure:"path"`
	Baud         uint32        `mapstructure:"baud"`
	DataBits     string        `mapstructure:"data_bits"`
	StopBits     string        `mapstructure:"stop_bits"`
	Parity       string        `mapstructure:"parity"`
	FlowControl  string        `mapstructure:"flow_control"`
	Timeout      time.Duration `mapstructure:"timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Strict       bool          `mapstructure:"strict"`
}

type logConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Trace      bool   `mapstructure:"trace"`
}

// loadConfig reads comport.yaml (optional), COMPORT_ variables and flags,
// later sources win.
func loadConfig(args []string) (*sampleConfig, error) {
	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("sample", pflag.ContinueOnError)
	configFile := flags.String("config", "", "config file")
	flags.String("port", "", "serial device, e.g. COM3")
	flags.Uint32("baud", 0, "baud rate")
	flags.Bool("loopback", false, "use a virtual loopback device")
	flags.Bool("trace", false, "trace host calls")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	for key, flag := range map[string]string{
		"port.path": "port",
		"port.baud": "baud",
		"loopback":  "loopback",
		"log.trace": "trace",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("COMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("comport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg sampleConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port.path", "COM3")
	v.SetDefault("port.baud", 115200)
	v.SetDefault("port.data_bits", "8")
	v.SetDefault("port.stop_bits", "1")
	v.SetDefault("port.parity", "none")
	v.SetDefault("port.flow_control", "none")
	v.SetDefault("port.timeout", serial.DefaultTimeout)
	v.SetDefault("port.write_timeout", "0s")
	v.SetDefault("port.strict", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	v.SetDefault("command", "AT\r\n")
	v.SetDefault("interval", "2s")
}

// serialConfig converts the file representation into a port config.
func (pc portConfig) serialConfig() (serial.Config, error) {
	cfg := serial.NewConfig(pc.Path, pc.Baud).
		WithTimeout(pc.Timeout).
		WithWriteTimeout(pc.WriteTimeout)
	dataBits, err := serial.ParseDataBits(pc.DataBits)
	if err != nil {
		return cfg, err
	}
	stopBits, err := serial.ParseStopBits(pc.StopBits)
	if err != nil {
		return cfg, err
	}
	parity, err := serial.ParseParity(pc.Parity)
	if err != nil {
		return cfg, err
	}
	flow, err := serial.ParseFlowControl(pc.FlowControl)
	if err != nil {
		return cfg, err
	}
	cfg = cfg.WithDataBits(dataBits).WithStopBits(stopBits).WithParity(parity).WithFlowControl(flow)
	if pc.Strict {
		cfg = cfg.WithPolicy(serial.Strict)
	}
	return cfg, nil
}
