package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// mustBindPFlag binds a config key to a flag and panics if the binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

// mustBindEnv binds a config key to explicit environment variable names.
func mustBindEnv(input ...string) {
	if err := viper.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}
