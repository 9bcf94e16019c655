// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/weather_station/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboard only
	},
}

// RunWeb subscribes to the record topic and serves the latest record at
// /api/latest plus a live push on /ws. Requires the collector to run with
// the mqtt sink enabled.
func RunWeb(cfg *config.Config, log *zap.Logger) error {
	var (
		mu      sync.RWMutex
		latest  []byte
		haveRec bool
		clients = make(map[*websocket.Conn]chan []byte)
	)

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info("web connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	// 2) Subscribe and fan new records out to websocket clients
	token := client.Subscribe(cfg.MQTTTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		mu.Lock()
		latest = payload
		haveRec = true
		for _, ch := range clients {
			select {
			case ch <- payload:
			default: // slow client, drop this record
			}
		}
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info("web subscribed", zap.String("topic", cfg.MQTTTopic))

	// 3) JSON API endpoint: latest record
	http.HandleFunc("/api/latest", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveRec {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(latest)
	})

	// 4) Websocket push: one message per cycle
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade error", zap.Error(err))
			return
		}

		ch := make(chan []byte, 4)
		mu.Lock()
		clients[conn] = ch
		mu.Unlock()

		defer func() {
			mu.Lock()
			delete(clients, conn)
			mu.Unlock()
			conn.Close()
		}()

		for payload := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Warn("websocket write error", zap.Error(err))
				}
				return
			}
		}
	})

	// 5) Static files from ./web as the root
	http.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Info("web server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, nil)
}
