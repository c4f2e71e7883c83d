package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// legacyConfig is the flat layout of the first config.yml format.
type legacyConfig struct {
	HttpdPodName       string            `yaml:"httpdPodName"`
	HttpdContainerName string            `yaml:"httpdContainerName"`
	HttpdBinary        string            `yaml:"httpdBinary"`
	ProxyBalancerConf  string            `yaml:"proxyBalancerConf"`
	TomcatImage        string            `yaml:"tomcatImage"`
	TomcatLabels       map[string]string `yaml:"tomcatLabels"`
}

var legacyKeys = []string{
	"httpdPodName",
	"httpdContainerName",
	"httpdBinary",
	"proxyBalancerConf",
	"tomcatImage",
	"tomcatLabels",
}

// isLegacy reports whether a document uses the flat layout.
func isLegacy(raw map[string]any) bool {
	for _, k := range legacyKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

func parseLegacy(data []byte) (*Config, error) {
	var legacy legacyConfig
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to decode legacy config: %w", err)
	}
	return legacy.convert(), nil
}

// convert maps the flat layout onto the defaults. Unset keys keep their
// default value.
func (l legacyConfig) convert() *Config {
	cfg := Default()
	setIfNotEmpty(&cfg.Proxy.PodName, l.HttpdPodName)
	setIfNotEmpty(&cfg.Proxy.ContainerName, l.HttpdContainerName)
	setIfNotEmpty(&cfg.Proxy.Binary, l.HttpdBinary)
	setIfNotEmpty(&cfg.Proxy.ConfigPath, l.ProxyBalancerConf)
	setIfNotEmpty(&cfg.Backend.ImagePattern, l.TomcatImage)
	if len(l.TomcatLabels) > 0 {
		cfg.Backend.Labels = l.TomcatLabels
	}
	return cfg
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
