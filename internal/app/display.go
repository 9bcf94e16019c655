// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/weather_station/internal/config"
)

// displayData holds the latest record for the OLED readout.
type displayData struct {
	mu      sync.RWMutex
	temp    float64
	humi    float64
	pres    float64
	cidx    float64
	haveRec bool
}

// RunDisplay renders the latest temperature, humidity and pressure on an
// SSD1306 OLED. Requires the collector to run with the mqtt sink enabled.
func RunDisplay(cfg *config.Config, log *zap.Logger) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Info("display initialized", zap.String("bus", bus.String()))

	data := &displayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info("display connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	token := client.Subscribe(cfg.MQTTTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var obj map[string]any
		if err := json.Unmarshal(msg.Payload(), &obj); err != nil {
			log.Warn("record unmarshal error", zap.Error(err))
			return
		}
		data.mu.Lock()
		data.temp = num(obj, "temp")
		data.humi = num(obj, "humi")
		data.pres = num(obj, "pres")
		data.cidx = num(obj, "cidx")
		data.haveRec = true
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info("display subscribed", zap.String("topic", cfg.MQTTTopic))

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		data.mu.RLock()
		snapshot := displayData{
			temp:    data.temp,
			humi:    data.humi,
			pres:    data.pres,
			cidx:    data.cidx,
			haveRec: data.haveRec,
		}
		data.mu.RUnlock()

		if err := updateDisplay(dev, &snapshot); err != nil {
			log.Warn("display update error", zap.Error(err))
		}
	}
	return nil
}

func updateDisplay(dev *ssd1306.Dev, data *displayData) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	// Blank image
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if !data.haveRec {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Weather"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
	} else {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte(fmt.Sprintf("T %7.2f C", data.temp)))

		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte(fmt.Sprintf("H %7.2f %%", data.humi)))

		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("P %7.2f hPa", data.pres)))

		drawer.Dot = fixed.P(0, 52)
		drawer.DrawBytes([]byte(fmt.Sprintf("#%.0f", data.cidx)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
