package main

type Config struct {
	OutPath  string
	Defaults bool
	Pretty   bool
}

func (c Config) Validate() error {
	return nil
}

func defaultConfig() Config {
	return Config{Pretty: true}
}
