// Package worker provides a NATS worker that processes dialogue TTS jobs
// published by upstream pipeline stages (typically the OCR service).
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/dialogue-tts/internal/core"
	"github.com/book-expert/dialogue-tts/internal/domain"
)

const handleMessageTimeout = 300 * time.Second

// DialogueLineRequestedEvent is the job payload: one dialogue line with its
// resolution hints, addressed by run id and dialogue id.
type DialogueLineRequestedEvent struct {
	Header       events.EventHeader `json:"header"`
	RunID        string             `json:"run_id"`
	DialogueID   int                `json:"dialogue_id"`
	Text         string             `json:"text"`
	Gender       string             `json:"gender"`
	Emotion      string             `json:"emotion"`
	SpeakerID    string             `json:"speaker_id"`
	ImagePath    string             `json:"image_path"`
	Exaggeration *float64           `json:"exaggeration,omitempty"`
	CFG          *float64           `json:"cfg,omitempty"`
}

// DialogueAudioCreatedEvent is the reply published after a successful
// synthesis, carrying the reference to the stored artifact.
type DialogueAudioCreatedEvent struct {
	Header     events.EventHeader `json:"header"`
	RunID      string             `json:"run_id"`
	DialogueID int                `json:"dialogue_id"`
	AudioRef   domain.MediaRef    `json:"audio_ref"`
}

// NatsWorker listens for dialogue jobs on a NATS subject and runs them
// through the line generator. Replies go to the message's reply subject when
// set, otherwise to the configured audio-created subject.
type NatsWorker struct {
	natsConnection  *nats.Conn
	subject         string
	creationSubject string
	generator       core.LineGenerator
	log             *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	creationSubject string,
	generator core.LineGenerator,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection:  natsConnection,
		subject:         subject,
		creationSubject: creationSubject,
		generator:       generator,
		log:             log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var event DialogueLineRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal dialogue job: %v", err)

		return
	}

	output, err := w.generator.GenerateLine(ctx, jobInput(&event))
	if err != nil {
		w.log.Error(
			"Failed to process dialogue job (run=%s dialogue=%d workflow=%s): %v",
			event.RunID, event.DialogueID, event.Header.WorkflowID, err,
		)

		return
	}

	publishErr := w.publishReply(msg, &event, output)
	if publishErr != nil {
		w.log.Error(
			"Failed to publish reply for workflow %s: %v",
			event.Header.WorkflowID, publishErr,
		)
	}
}

func jobInput(event *DialogueLineRequestedEvent) domain.TTSInput {
	var custom *domain.EmotionParams
	if event.Exaggeration != nil && event.CFG != nil {
		custom = &domain.EmotionParams{CFG: *event.CFG, Exaggeration: *event.Exaggeration}
	}

	return domain.TTSInput{
		Text:           event.Text,
		Gender:         domain.Gender(event.Gender),
		Emotion:        domain.Emotion{Name: event.Emotion},
		Speaker:        domain.Speaker{Name: event.SpeakerID},
		ImageRef:       domain.MediaRef{Path: event.ImagePath},
		CustomSettings: custom,
		RunID:          event.RunID,
		DialogueID:     event.DialogueID,
	}
}

func (w *NatsWorker) publishReply(
	msg *nats.Msg,
	event *DialogueLineRequestedEvent,
	output domain.TTSOutput,
) error {
	reply := &DialogueAudioCreatedEvent{
		Header:     event.Header,
		RunID:      event.RunID,
		DialogueID: event.DialogueID,
		AudioRef:   output.AudioRef,
	}
	reply.Header.EventID = uuid.NewString()
	reply.Header.Timestamp = time.Now()

	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	if msg.Reply != "" {
		err = msg.Respond(replyData)
	} else {
		err = w.natsConnection.Publish(w.creationSubject, replyData)
	}

	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}
