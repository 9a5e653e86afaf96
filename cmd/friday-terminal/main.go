// Command friday-terminal is a console terminal for the assistant. It speaks
// the terminal side of the MQTT protocol: utterances typed on stdin are
// published, outputs and prompts are printed, and remote skill invocations
// drive a simulated set of lights.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"friday/internal/config"
	"friday/internal/domain"
	"friday/internal/logging"
	"friday/internal/mqtt"
)

func main() {
	configFile := flag.StringP("config", "c", "", "path to config file (default ./config.yaml)")
	terminalID := flag.String("id", "", "terminal id (overrides terminal.id)")
	flag.Parse()

	logger := logging.GetLogger()
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.WithError(err).Fatal("load config failed")
	}
	logging.SetLevel(cfg.Log.Level)
	if *terminalID != "" {
		cfg.Terminal.ID = *terminalID
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	state := newDeviceState()
	d := &dialog{}
	client, err := startMQTT(cfg, state, d, logger)
	if err != nil {
		logger.WithError(err).Fatal("start terminal mqtt failed")
	}
	defer func() {
		onlineTopic := mqtt.TopicOnline(cfg.MQTT.TopicPrefix, cfg.Terminal.ID)
		client.Publish(onlineTopic, 1, true, "offline").Wait()
		client.Disconnect(100)
	}()

	fmt.Printf("terminal %s connected. Empty line ends a turn, Ctrl-D quits.\n", cfg.Terminal.ID)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				if kind, payload, ok := d.flush(); ok {
					publishLine(client, cfg, kind, payload, logger)
				}
				return
			}
			if kind, payload, ok := d.next(line); ok {
				publishLine(client, cfg, kind, payload, logger)
			}
		}
	}
}

func startMQTT(cfg *config.Config, state *deviceState, d *dialog, logger logrus.FieldLogger) (paho.Client, error) {
	prefix, id := cfg.MQTT.TopicPrefix, cfg.Terminal.ID

	opts := paho.NewClientOptions().
		AddBroker(cfg.MQTT.BrokerURL).
		SetClientID("friday-terminal-" + id).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}

	onlineTopic := mqtt.TopicOnline(prefix, id)
	opts.SetWill(onlineTopic, "offline", 1, true)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if token := client.Publish(onlineTopic, 1, true, "online"); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if token := client.Subscribe(mqtt.TopicOutput(prefix, id), 1, func(_ paho.Client, msg paho.Message) {
		var out domain.Output
		if err := json.Unmarshal(msg.Payload(), &out); err != nil {
			logger.WithError(err).Warn("invalid output payload")
			return
		}
		fmt.Println("> " + out.Text)
	}); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if token := client.Subscribe(mqtt.TopicPrompt(prefix, id, "+"), 1, func(_ paho.Client, msg paho.Message) {
		var p domain.Prompt
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			logger.WithError(err).Warn("invalid prompt payload")
			return
		}
		if p.RequestID == "" {
			p.RequestID = mqtt.ParseRequestID(msg.Topic())
		}
		d.ask(p.RequestID)
		fmt.Println("? " + p.Text)
	}); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if token := client.Subscribe(mqtt.TopicInvoke(prefix, id, "+"), 1, func(_ paho.Client, msg paho.Message) {
		var req domain.InvokeRequest
		if err := json.Unmarshal(msg.Payload(), &req); err != nil {
			logger.WithError(err).Warn("invalid invoke payload")
			return
		}
		result := state.handleSkill(req)
		buf, _ := json.Marshal(result)
		if tk := client.Publish(mqtt.TopicResult(prefix, id, req.RequestID), 1, false, buf); tk.Wait() && tk.Error() != nil {
			logger.WithError(tk.Error()).Error("publish result failed")
		}
	}); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return client, nil
}

func publishLine(client paho.Client, cfg *config.Config, kind lineKind, payload any, logger logrus.FieldLogger) {
	buf, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Error("encode line")
		return
	}
	prefix, id := cfg.MQTT.TopicPrefix, cfg.Terminal.ID
	topic := mqtt.TopicUtterance(prefix, id)
	if kind == lineReply {
		topic = mqtt.TopicReply(prefix, id, payload.(domain.Reply).RequestID)
	}
	if token := client.Publish(topic, 1, false, buf); token.Wait() && token.Error() != nil {
		logger.WithError(token.Error()).Error("publish line failed")
	}
}
