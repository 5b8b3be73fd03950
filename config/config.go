package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Identity struct {
	// Address binds decryption commitments to this ledger instance
	Address string
	Owner   string
}

type Ledger struct {
	Cooldown  time.Duration
	Providers []string
}

type Tpke struct {
	PublicKeySet string
	SecretShares []string
	Threshold    int
}

type Oracle struct {
	SignerKeys      []string
	SignerThreshold int
	PollInterval    time.Duration
	ResultBuffer    int
}

type Storage struct {
	Path     string
	InMemory bool
}

type Api struct {
	Address string
}

type Log struct {
	Level string
	File  string
}

type Config struct {
	Identity Identity
	Ledger   Ledger
	Tpke     Tpke
	Oracle   Oracle
	Storage  Storage
	Api      Api
	Log      Log
}

// key material is generated by `cipherbatch keygen`
var defaultConfig = &Config{
	Identity: Identity{
		Address: "0x00000000000000000000000000000000000000c1",
		Owner:   "0x00000000000000000000000000000000000000a1",
	},
	Ledger: Ledger{
		Cooldown:  60 * time.Second,
		Providers: []string{},
	},
	Tpke: Tpke{
		PublicKeySet: "",
		SecretShares: []string{},
		Threshold:    2,
	},
	Oracle: Oracle{
		SignerKeys:      []string{},
		SignerThreshold: 1,
		PollInterval:    100 * time.Millisecond,
		ResultBuffer:    64,
	},
	Storage: Storage{
		Path:     os.Getenv("HOME") + "/.cipherbatch/db",
		InMemory: false,
	},
	Api: Api{
		Address: "127.0.0.1:8080",
	},
	Log: Log{
		Level: "info",
		File:  "",
	},
}

var once sync.Once

var configPath = os.Getenv("HOME") + "/.cipherbatch/config.yml"

func Path() string {
	return configPath
}

func SetPath(path string) {
	configPath = path
}

func Get() *Config {
	once.Do(func() {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			panic(fmt.Sprintf("cannot read config, path: %s", configPath))
		}
		err := viper.Unmarshal(&defaultConfig)
		if err != nil {
			panic(fmt.Sprintf("error in read config, err: %s", err))
		}
	})
	return defaultConfig
}

func Default() *Config {
	c := *defaultConfig
	return &c
}
