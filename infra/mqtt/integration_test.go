package mqtt_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/infra/mqtt"
	"github.com/kilianp07/prodcal/test/util"
)

func TestPublisherAgainstMosquitto(t *testing.T) {
	if os.Getenv("MQTT_INTEGRATION") != "1" {
		t.Skip("set MQTT_INTEGRATION=1 to run against a Mosquitto container")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Fatalf("start mosquitto: %v", err)
	}
	defer cleanup()

	got := make(chan calendar.View, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("reader"))
	if tok := sub.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("connect reader: %v", tok.Error())
	}
	defer sub.Disconnect(100)
	if tok := sub.Subscribe("prodcal/calendar/#", 1, func(_ paho.Client, m paho.Message) {
		var v calendar.View
		if err := json.Unmarshal(m.Payload(), &v); err == nil {
			got <- v
		}
	}); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	pub, err := mqtt.NewPublisher(mqtt.Config{Enabled: true, Broker: broker, ClientID: "writer", QoS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer pub.Disconnect()
	if err := pub.PublishView(ctx, calendar.View{Mode: calendar.ViewDaily, Date: "2024-01-25"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case v := <-got:
		if v.Date != "2024-01-25" {
			t.Fatalf("unexpected view %+v", v)
		}
	case <-ctx.Done():
		t.Fatalf("view not received")
	}
}
