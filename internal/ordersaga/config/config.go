// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	config *OrderSagaConfig
	once   sync.Once
)

// OrderSagaConfig is the service configuration, read from ordersaga.yaml.
type OrderSagaConfig struct {
	Database struct {
		Username string `json:"username" yaml:"username"`
		Password string `json:"password" yaml:"password"`
		Host     string `json:"host" yaml:"host"`
		Port     string `json:"port" yaml:"port"`
		DBName   string `json:"dbname" yaml:"dbname"`
	} `json:"database" yaml:"database"`
	Server struct {
		Port string `json:"port" yaml:"port"`
	} `json:"server" yaml:"server"`
	Kafka struct {
		Brokers []string `json:"brokers" yaml:"brokers"`
	} `json:"kafka" yaml:"kafka"`
	Saga struct {
		AwaitTimeout       time.Duration `json:"awaitTimeout" yaml:"awaitTimeout"`
		SweepInterval      time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
		StalenessThreshold time.Duration `json:"stalenessThreshold" yaml:"stalenessThreshold"`
		StatsInterval      time.Duration `json:"statsInterval" yaml:"statsInterval"`
	} `json:"saga" yaml:"saga"`
}

// GetConfig loads the configuration on first use.
func GetConfig() *OrderSagaConfig {
	once.Do(func() {
		viper.SetConfigName("ordersaga")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		viper.SetDefault("server.port", "8080")
		viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
		viper.SetDefault("saga.awaitTimeout", 30*time.Second)
		viper.SetDefault("saga.sweepInterval", 30*time.Second)
		viper.SetDefault("saga.stalenessThreshold", time.Minute)
		viper.SetDefault("saga.statsInterval", time.Hour)

		if err := viper.ReadInConfig(); err != nil {
			panic(err)
		}
		config = &OrderSagaConfig{}
		if err := viper.Unmarshal(config); err != nil {
			panic(err)
		}
	})
	return config
}
