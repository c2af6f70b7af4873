package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/embd.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/embd.go/pkg/l1/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/embd/"
)

func init() {
	if val := os.Getenv("EMBD_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("+/+"+mqtt.TopicMeta, mqtt.Handler(func(topic string, payload []byte) {
		name := strings.TrimSuffix(topic, mqtt.TopicMeta)
		if len(payload) == 0 {
			log.Printf("%s: offline", name)
			return
		}
		log.Printf("%s: %s", name, string(payload))
	}))
	q.Sub("+/+"+mqtt.TopicTelemetry, mqtt.Handler(func(topic string, payload []byte) {
		snapshot, err := telemetry.Decode(payload)
		if err != nil {
			log.Printf("%s: bad telemetry: %v", topic, err)
			return
		}
		text, err := telemetry.Format(snapshot)
		if err != nil {
			log.Printf("%s: format error: %v", topic, err)
			return
		}
		log.Printf("%s:\n%s", topic, text)
	}))
	<-(chan struct{})(nil)
}
