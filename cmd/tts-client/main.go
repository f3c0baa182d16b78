// main package for the dialogue-tts command line client.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/book-expert/logger"
)

// Flag descriptions.
const (
	flagServerDesc   = "Base URL of the dialogue-tts service"
	flagTextDesc     = "Dialogue text to synthesize"
	flagGenderDesc   = "Gender hint (female, male, neutral)"
	flagEmotionDesc  = "Emotion hint (see /tts/emotions)"
	flagSpeakerDesc  = "Speaker hint"
	flagRunDesc      = "Run identifier"
	flagImageDesc    = "Source image file name"
	flagDialogueDesc = "Dialogue identifier within the image"
	flagBatchDesc    = "Path to an OCR document JSON to run as a batch"
	flagHealthDesc   = "Check service health and exit"
)

// Error and log messages.
const (
	errFailedToInitLogger = "Failed to initialize logger: %v"
	errEitherTextOrBatch  = "either --text or --batch must be provided"
	errCannotSpecifyBoth  = "cannot specify both --text and --batch"
	errFmtRequestFailed   = "request failed: %v"
	errFmtBadStatus       = "service answered %s: %s"
	logGenerated          = "Generated: %s\n"
	logSummary            = "Batch run %s finished: %d images under %s\n"
	logHealthy            = "Service is healthy\n"
	logSendingLine        = "Sending dialogue line to %s (run=%s)"
	logSendingBatch       = "Sending batch document %s to %s (run=%s)"
	logLineGenerated      = "Line generated: %s"
	logBatchFinished      = "Batch run %s finished with %d images"
)

// File names and paths.
const logFileName = "tts-client.log"

const requestTimeout = 600 * time.Second

type appFlags struct {
	server   string
	text     string
	gender   string
	emotion  string
	speaker  string
	run      string
	image    string
	dialogue int
	batch    string
	health   bool
}

type dialogueRequest struct {
	Text          string `json:"text"`
	Gender        string `json:"gender"`
	Emotion       string `json:"emotion"`
	SpeakerID     string `json:"speaker_id"`
	RunID         string `json:"run_id"`
	ImageFileName string `json:"image_file_name"`
	DialogueID    int    `json:"dialogue_id"`
}

type dialogueResponse struct {
	AudioRef struct {
		Namespace string `json:"namespace"`
		Path      string `json:"path"`
	} `json:"audio_ref"`
}

type batchRequest struct {
	FilePath string `json:"file_path"`
	RunID    string `json:"run_id"`
}

type batchSummary struct {
	RunID        string `json:"run_id"`
	OutputFolder string `json:"output_folder"`
	ImageCount   int    `json:"image_count"`
}

func parseFlags() *appFlags {
	flags := &appFlags{}

	flag.StringVar(&flags.server, "server", "http://localhost:8080", flagServerDesc)
	flag.StringVar(&flags.text, "text", "", flagTextDesc)
	flag.StringVar(&flags.gender, "gender", "", flagGenderDesc)
	flag.StringVar(&flags.emotion, "emotion", "", flagEmotionDesc)
	flag.StringVar(&flags.speaker, "speaker", "", flagSpeakerDesc)
	flag.StringVar(&flags.run, "run", "manual_run", flagRunDesc)
	flag.StringVar(&flags.image, "image", "manual.png", flagImageDesc)
	flag.IntVar(&flags.dialogue, "dialogue", 0, flagDialogueDesc)
	flag.StringVar(&flags.batch, "batch", "", flagBatchDesc)
	flag.BoolVar(&flags.health, "health", false, flagHealthDesc)
	flag.Parse()

	return flags
}

func validateFlags(flags *appFlags) error {
	if flags.health {
		return nil
	}

	if flags.text == "" && flags.batch == "" {
		return errors.New(errEitherTextOrBatch)
	}

	if flags.text != "" && flags.batch != "" {
		return errors.New(errCannotSpecifyBoth)
	}

	return nil
}

func postJSON(ctx context.Context, url string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf(errFmtRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)

		return fmt.Errorf(errFmtBadStatus, resp.Status, string(respBody))
	}

	err = json.NewDecoder(resp.Body).Decode(result)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func runHealthCheck(ctx context.Context, serverURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf(errFmtRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service is not healthy: %s", resp.Status)
	}

	fmt.Print(logHealthy)

	return nil
}

func runSingleLine(ctx context.Context, flags *appFlags, clientLogger *logger.Logger) error {
	clientLogger.Info(logSendingLine, flags.server, flags.run)

	var result dialogueResponse

	err := postJSON(ctx, flags.server+"/tts/dialogue", dialogueRequest{
		Text:          flags.text,
		Gender:        flags.gender,
		Emotion:       flags.emotion,
		SpeakerID:     flags.speaker,
		RunID:         flags.run,
		ImageFileName: flags.image,
		DialogueID:    flags.dialogue,
	}, &result)
	if err != nil {
		return err
	}

	clientLogger.Info(logLineGenerated, result.AudioRef.Path)
	fmt.Printf(logGenerated, result.AudioRef.Path)

	return nil
}

func runBatch(ctx context.Context, flags *appFlags, clientLogger *logger.Logger) error {
	clientLogger.Info(logSendingBatch, flags.batch, flags.server, flags.run)

	var summary batchSummary

	err := postJSON(ctx, flags.server+"/tts/from_ocr_json", batchRequest{
		FilePath: flags.batch,
		RunID:    flags.run,
	}, &summary)
	if err != nil {
		return err
	}

	clientLogger.Info(logBatchFinished, summary.RunID, summary.ImageCount)
	fmt.Printf(logSummary, summary.RunID, summary.ImageCount, summary.OutputFolder)

	return nil
}

func run() error {
	flags := parseFlags()

	err := validateFlags(flags)
	if err != nil {
		flag.Usage()

		return err
	}

	clientLogger, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf(errFailedToInitLogger, err)
	}

	defer func() {
		closeErr := clientLogger.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch {
	case flags.health:
		return runHealthCheck(ctx, flags.server)
	case flags.batch != "":
		return runBatch(ctx, flags, clientLogger)
	default:
		return runSingleLine(ctx, flags, clientLogger)
	}
}

func main() {
	err := run()
	if err != nil {
		// The logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}
