package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"friday/internal/domain"
	"friday/internal/metrics"
	"friday/internal/session"
	"friday/internal/skills"
)

var (
	ErrNotConnected  = errors.New("mqtt hub is not connected")
	ErrInvokeFailed  = errors.New("terminal skill failed")
	ErrInvokeTimeout = errors.New("terminal skill timed out")
	ErrPromptTimeout = errors.New("terminal did not answer")
)

type HubConfig struct {
	BrokerURL     string
	ClientID      string
	Username      string
	Password      string
	TopicPrefix   string
	InvokeTimeout time.Duration
	PromptTimeout time.Duration
}

// Hub connects terminals to the assistant: utterances they publish run as
// turns on the terminal's session, and handlers answer through the
// terminal's output and prompt topics.
type Hub struct {
	cfg     HubConfig
	client  paho.Client
	logger  logrus.FieldLogger
	publish func(topic string, body []byte) error

	catalog  *skills.Catalog
	sessions *session.Store
	metrics  *metrics.Metrics

	baseCtx context.Context
	turns   sync.WaitGroup

	queueMu sync.Mutex
	queues  map[string]*turnQueue

	results *pending[domain.InvokeResult]
	replies *pending[domain.Reply]
}

func NewHub(cfg HubConfig, logger logrus.FieldLogger) *Hub {
	if cfg.InvokeTimeout <= 0 {
		cfg.InvokeTimeout = 20 * time.Second
	}
	if cfg.PromptTimeout <= 0 {
		cfg.PromptTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Hub{
		cfg:     cfg,
		logger:  logger.WithField("component", "mqtt"),
		baseCtx: context.Background(),
		queues:  make(map[string]*turnQueue),
		results: newPending[domain.InvokeResult](),
		replies: newPending[domain.Reply](),
	}
	h.publish = h.publishPaho
	return h
}

// Bind sets what utterances are run against. It must be called before Start.
func (h *Hub) Bind(catalog *skills.Catalog, sessions *session.Store, m *metrics.Metrics) {
	h.catalog = catalog
	h.sessions = sessions
	h.metrics = m
}

func (h *Hub) Start(ctx context.Context) error {
	if h.catalog == nil || h.sessions == nil {
		return fmt.Errorf("mqtt hub started without a catalog")
	}
	h.baseCtx = ctx

	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.WithError(err).Error("mqtt connection lost")
	})

	h.client = paho.NewClient(opts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if err := h.subscribeHandlers(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		h.turns.Wait()
		h.client.Disconnect(100)
	}()

	return nil
}

// Wait blocks until every running turn has returned.
func (h *Hub) Wait() {
	h.turns.Wait()
}

func (h *Hub) subscribeHandlers() error {
	subs := []struct {
		topic   string
		handler paho.MessageHandler
	}{
		{TopicTerminalUtterance(h.cfg.TopicPrefix), h.handleUtterance},
		{TopicTerminalOnline(h.cfg.TopicPrefix), h.handleOnline},
		{TopicTerminalReply(h.cfg.TopicPrefix), h.handleReply},
		{TopicTerminalResult(h.cfg.TopicPrefix), h.handleInvokeResult},
	}
	for _, s := range subs {
		if token := h.client.Subscribe(s.topic, 1, s.handler); token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}

func (h *Hub) publishPaho(topic string, body []byte) error {
	if h.client == nil {
		return ErrNotConnected
	}
	if token := h.client.Publish(topic, 1, false, body); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (h *Hub) handleUtterance(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.WithError(err).WithField("topic", msg.Topic()).Warn("skip invalid utterance topic")
		return
	}

	var u domain.Utterance
	if err := json.Unmarshal(msg.Payload(), &u); err != nil {
		h.logger.WithError(err).WithField("terminal_id", terminalID).Warn("invalid utterance payload")
		return
	}
	if strings.TrimSpace(u.Text) == "" && !u.Final {
		return
	}

	h.enqueue(terminalID, u)
}

// turnQueue holds the utterances of one terminal waiting for its worker.
type turnQueue struct {
	items   []domain.Utterance
	running bool
}

// enqueue appends u to the terminal's queue and starts a worker when none is
// running. Turns of one terminal run in arrival order, off the message
// callback: handlers may wait on a reply delivered by this same client.
func (h *Hub) enqueue(terminalID string, u domain.Utterance) {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()

	q := h.queues[terminalID]
	if q == nil {
		q = &turnQueue{}
		h.queues[terminalID] = q
	}
	q.items = append(q.items, u)
	if q.running {
		return
	}
	q.running = true
	h.turns.Add(1)
	go h.drain(terminalID, q)
}

func (h *Hub) drain(terminalID string, q *turnQueue) {
	defer h.turns.Done()
	for {
		h.queueMu.Lock()
		if len(q.items) == 0 {
			q.running = false
			delete(h.queues, terminalID)
			h.queueMu.Unlock()
			return
		}
		u := q.items[0]
		q.items = q.items[1:]
		h.queueMu.Unlock()

		h.runTurn(terminalID, u)
	}
}

func (h *Hub) runTurn(terminalID string, u domain.Utterance) {
	term := &terminal{hub: h, id: terminalID}
	log := h.logger.WithFields(logrus.Fields{"terminal_id": terminalID, "final": u.Final})

	h.metrics.ObserveTurn(u.Final, term.Kind())
	dispatched, err := h.sessions.Get(terminalID).Turn(h.baseCtx, u.Text, u.Final, h.metrics.Instrument(h.catalog.Dispatcher(term)))
	h.metrics.SetSessions(h.sessions.Len())
	if err != nil {
		log.WithError(err).Warn("turn finished with errors")
		return
	}
	log.WithField("dispatched", len(dispatched)).Debug("turn finished")
}

func (h *Hub) handleOnline(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.WithError(err).WithField("topic", msg.Topic()).Warn("skip invalid online topic")
		return
	}

	payload := strings.TrimSpace(strings.ToLower(string(msg.Payload())))
	online := payload == "1" || payload == "true" || payload == "online"
	if !online {
		h.sessions.Delete(terminalID)
		h.metrics.SetSessions(h.sessions.Len())
	}
	h.logger.WithFields(logrus.Fields{"terminal_id": terminalID, "online": online}).Info("terminal online status")
}

func (h *Hub) handleReply(_ paho.Client, msg paho.Message) {
	requestID := ParseRequestID(msg.Topic())
	if requestID == "" {
		return
	}

	var reply domain.Reply
	if err := json.Unmarshal(msg.Payload(), &reply); err != nil {
		h.logger.WithError(err).WithField("topic", msg.Topic()).Warn("invalid prompt reply")
		return
	}
	if reply.RequestID == "" {
		reply.RequestID = requestID
	}
	h.replies.deliver(reply.RequestID, reply)
}

func (h *Hub) handleInvokeResult(_ paho.Client, msg paho.Message) {
	requestID := ParseRequestID(msg.Topic())
	if requestID == "" {
		return
	}

	var result domain.InvokeResult
	if err := json.Unmarshal(msg.Payload(), &result); err != nil {
		h.logger.WithError(err).WithField("topic", msg.Topic()).Warn("invalid invoke result")
		return
	}
	if result.RequestID == "" {
		result.RequestID = requestID
	}
	h.results.deliver(result.RequestID, result)
}

// InvokeSkill runs skill on the terminal and waits for its result.
func (h *Hub) InvokeSkill(ctx context.Context, terminalID, skill string, args json.RawMessage) (domain.InvokeResult, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	requestID := uuid.NewString()
	body, err := json.Marshal(domain.InvokeRequest{
		RequestID: requestID,
		Skill:     skill,
		Arguments: args,
	})
	if err != nil {
		return domain.InvokeResult{}, err
	}

	resultCh := h.results.add(requestID)
	defer h.results.remove(requestID)

	if err := h.publish(TopicInvoke(h.cfg.TopicPrefix, terminalID, requestID), body); err != nil {
		return domain.InvokeResult{}, err
	}

	select {
	case <-ctx.Done():
		return domain.InvokeResult{}, ctx.Err()
	case result := <-resultCh:
		if !result.OK {
			if result.Error == "" {
				result.Error = "tool invocation failed"
			}
			return result, fmt.Errorf("%w: %s", ErrInvokeFailed, result.Error)
		}
		return result, nil
	case <-time.After(h.cfg.InvokeTimeout):
		return domain.InvokeResult{}, fmt.Errorf("%w: %s", ErrInvokeTimeout, skill)
	}
}

func (h *Hub) output(terminalID, text string) error {
	body, err := json.Marshal(domain.Output{Text: text})
	if err != nil {
		return err
	}
	return h.publish(TopicOutput(h.cfg.TopicPrefix, terminalID), body)
}

func (h *Hub) ask(ctx context.Context, terminalID, prompt string) (string, error) {
	requestID := uuid.NewString()
	body, err := json.Marshal(domain.Prompt{RequestID: requestID, Text: prompt})
	if err != nil {
		return "", err
	}

	replyCh := h.replies.add(requestID)
	defer h.replies.remove(requestID)

	if err := h.publish(TopicPrompt(h.cfg.TopicPrefix, terminalID, requestID), body); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case reply := <-replyCh:
		return reply.Text, nil
	case <-time.After(h.cfg.PromptTimeout):
		return "", ErrPromptTimeout
	}
}

var _ skills.Terminal = (*terminal)(nil)

// terminal is the skills.Interface of one connected terminal.
type terminal struct {
	hub *Hub
	id  string
}

func (t *terminal) Kind() string { return "mqtt" }

func (t *terminal) TerminalID() string { return t.id }

func (t *terminal) Output(_ context.Context, text string) error {
	return t.hub.output(t.id, text)
}

func (t *terminal) Input(ctx context.Context, prompt string) (string, error) {
	return t.hub.ask(ctx, t.id, prompt)
}

// pending correlates published requests with their answers by request id.
type pending[T any] struct {
	mu sync.Mutex
	m  map[string]chan T
}

func newPending[T any]() *pending[T] {
	return &pending[T]{m: make(map[string]chan T)}
}

func (p *pending[T]) add(id string) chan T {
	ch := make(chan T, 1)
	p.mu.Lock()
	p.m[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pending[T]) remove(id string) {
	p.mu.Lock()
	delete(p.m, id)
	p.mu.Unlock()
}

func (p *pending[T]) deliver(id string, v T) bool {
	p.mu.Lock()
	ch, ok := p.m[id]
	p.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}
