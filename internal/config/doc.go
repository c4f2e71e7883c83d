// Package config defines the controller configuration and loads it from a
// YAML file.
//
// [LoadFile] reads the file, applies defaults for every unset field, applies
// environment overrides and validates the result. Files written for the
// first generation of the tool, with flat keys such as httpdPodName and
// tomcatImage, are detected and converted.
package config
