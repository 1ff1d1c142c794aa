// Package devices holds the bindings generated from the sample bridge
// payload in generator/testdata.
package devices

//go:generate env Z2MGEN_GENERATOR_SCHEMA_FILE=../generator/testdata/bridge_devices.json Z2MGEN_GENERATOR_OUTPUT=devices_gen.go Z2MGEN_GENERATOR_PACKAGE=devices go run .. generate
