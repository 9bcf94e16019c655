// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/weather_station/internal/config"
)

// RunConsole subscribes to the record topic and prints one line per cycle.
// Requires the collector to run with the mqtt sink enabled.
func RunConsole(cfg *config.Config, log *zap.Logger) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info("console connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	token := client.Subscribe(cfg.MQTTTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var obj map[string]any
		if err := json.Unmarshal(msg.Payload(), &obj); err != nil {
			log.Warn("record unmarshal error", zap.Error(err))
			return
		}

		fmt.Printf("[REC] cidx=%v cattr=%v T=%6.2fC H=%6.2f%% P=%7.2fhPa\n",
			obj["cidx"], obj["cattr"],
			num(obj, "temp"), num(obj, "humi"), num(obj, "pres"))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info("console subscribed", zap.String("topic", cfg.MQTTTopic))

	// Block until interrupted
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

func num(obj map[string]any, key string) float64 {
	v, _ := obj[key].(float64)
	return v
}
