// Package server exposes the dialogue TTS HTTP API: single-line generation,
// the emotion registry, batch runs over OCR documents, and batch result
// retrieval.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/book-expert/dialogue-tts/internal/batch"
	"github.com/book-expert/dialogue-tts/internal/domain"
	"github.com/book-expert/dialogue-tts/internal/mediastore"
)

// Controller handles the /tts route group.
type Controller struct {
	Generator  LineGenerator
	Processor  DocumentProcessor
	Registries *domain.Registries
	Store      *mediastore.Store
	Log        *logger.Logger
}

// DialogueRequest is the payload of POST /tts/dialogue. Gender, emotion and
// speaker are hints; the service resolves them against its registries.
// DialogueID is a pointer so that an absent id can be told apart from 0 and
// rejected.
type DialogueRequest struct {
	Text                 string   `json:"text"`
	Gender               string   `json:"gender"`
	Emotion              string   `json:"emotion"`
	SpeakerID            string   `json:"speaker_id"`
	RunID                string   `json:"run_id"`
	ImageRelPathFromRoot string   `json:"image_rel_path_from_root"`
	ImageFileName        string   `json:"image_file_name"`
	DialogueID           *int     `json:"dialogue_id"`
	UseCustomParams      bool     `json:"use_custom_params"`
	Exaggeration         *float64 `json:"exaggeration"`
	CFG                  *float64 `json:"cfg"`
}

// TuneRequest is the payload of POST /tts/tune_emotion: a direct probe of the
// two engine knobs for one voice. Both knobs are required; the whole point is
// pinning explicit values instead of the registry defaults.
type TuneRequest struct {
	Text         string   `json:"text"`
	Gender       string   `json:"gender"`
	Emotion      string   `json:"emotion"`
	SpeakerID    string   `json:"speaker_id"`
	Exaggeration *float64 `json:"exaggeration"`
	CFG          *float64 `json:"cfg"`
}

// BatchRequest is the JSON body form of POST /tts/from_ocr_json, used when
// the document lives on the server instead of being uploaded.
type BatchRequest struct {
	FilePath string `json:"file_path"`
	RunID    string `json:"run_id"`
}

// EmotionOptionsResponse lists the emotion registry for selection lists.
type EmotionOptionsResponse struct {
	EmotionOptions []domain.Emotion `json:"emotion_options"`
}

// ErrorResponse is the structured error body for failed dialogue requests.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RunID      string `json:"run_id"`
	DialogueID int    `json:"dialogue_id"`
}

// GenerateDialogue handles POST /tts/dialogue. Input failures answer 422,
// synthesis failures 500, both with the classified error body.
func (ctl *Controller) GenerateDialogue(c *gin.Context) {
	var req DialogueRequest

	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   string(domain.KindInput),
			Message: "malformed request body: " + err.Error(),
		})

		return
	}

	dialogueID := -1
	if req.DialogueID != nil {
		dialogueID = *req.DialogueID
	}

	input, err := ctl.buildInput(req, dialogueID)
	if err != nil {
		ctl.writeError(c, domain.NewInputError(err), req.RunID, dialogueID)

		return
	}

	output, err := ctl.Generator.GenerateLine(c.Request.Context(), input)
	if err != nil {
		ctl.writeError(c, err, req.RunID, dialogueID)

		return
	}

	c.JSON(http.StatusOK, output)
}

func (ctl *Controller) buildInput(req DialogueRequest, dialogueID int) (domain.TTSInput, error) {
	if req.UseCustomParams && (req.Exaggeration == nil || req.CFG == nil) {
		return domain.TTSInput{}, errors.New("use_custom_params requires both exaggeration and cfg")
	}

	var custom *domain.EmotionParams
	if req.UseCustomParams {
		custom = &domain.EmotionParams{CFG: *req.CFG, Exaggeration: *req.Exaggeration}
	}

	// Strip any leading folders from the client-supplied image file name.
	imageName := path.Base(filepath.ToSlash(req.ImageFileName))
	imagePath := path.Join(filepath.ToSlash(req.ImageRelPathFromRoot), imageName)

	return domain.TTSInput{
		Text:           req.Text,
		Gender:         domain.Gender(req.Gender),
		Emotion:        domain.Emotion{Name: req.Emotion},
		Speaker:        domain.Speaker{Name: req.SpeakerID},
		ImageRef:       domain.MediaRef{Path: imagePath},
		CustomSettings: custom,
		RunID:          req.RunID,
		DialogueID:     dialogueID,
	}, nil
}

// tuningRunID is the shared run every tuning artifact files under, keeping
// parameter probes out of real conversation version sequences.
const tuningRunID = "emotion_tuning"

var errTuneKnobsRequired = errors.New("emotion tuning requires both exaggeration and cfg")

// TuneEmotion handles POST /tts/tune_emotion. It synthesizes one line with
// explicit knob values and files it under the shared tuning run with a
// self-describing filename, so curators can compare parameter values side by
// side.
func (ctl *Controller) TuneEmotion(c *gin.Context) {
	var req TuneRequest

	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   string(domain.KindInput),
			Message: "malformed request body: " + err.Error(),
			RunID:   tuningRunID,
		})

		return
	}

	if req.Exaggeration == nil || req.CFG == nil {
		ctl.writeError(c, domain.NewInputError(errTuneKnobsRequired), tuningRunID, 0)

		return
	}

	custom := &domain.EmotionParams{CFG: *req.CFG, Exaggeration: *req.Exaggeration}

	output, err := ctl.Generator.GenerateLine(c.Request.Context(), domain.TTSInput{
		Text:           req.Text,
		Gender:         domain.Gender(req.Gender),
		Emotion:        domain.Emotion{Name: req.Emotion},
		Speaker:        domain.Speaker{Name: req.SpeakerID},
		CustomSettings: custom,
		RunID:          tuningRunID,
		CustomFilename: tuningFilename(req.SpeakerID, custom),
		DialogueID:     0,
	})
	if err != nil {
		ctl.writeError(c, err, tuningRunID, 0)

		return
	}

	c.JSON(http.StatusOK, output)
}

// tuningFilename names a tuning artifact after the voice, the moment and the
// knob values, plus a short random suffix so repeated probes never overwrite
// each other.
func tuningFilename(speakerID string, params *domain.EmotionParams) string {
	stamp := time.Now().Format("20060102_150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]

	return fmt.Sprintf(
		"%s_%s_exg%s_cfg%s_%s",
		speakerID,
		stamp,
		mediastore.FormatKnob(params.Exaggeration),
		mediastore.FormatKnob(params.CFG),
		suffix,
	)
}

// ListEmotions handles GET /tts/emotions, returning the registry sorted by
// name.
func (ctl *Controller) ListEmotions(c *gin.Context) {
	c.JSON(http.StatusOK, EmotionOptionsResponse{
		EmotionOptions: ctl.Registries.Emotions(),
	})
}

// RunBatch handles POST /tts/from_ocr_json. The document arrives either as a
// multipart upload ("file") or as a server-local path, plus the run id.
func (ctl *Controller) RunBatch(c *gin.Context) {
	runID, data, err := ctl.readBatchRequest(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   string(domain.KindInput),
			Message: err.Error(),
			RunID:   runID,
		})

		return
	}

	var document batch.Document

	err = json.Unmarshal(data, &document)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   string(domain.KindInput),
			Message: "malformed OCR document: " + err.Error(),
			RunID:   runID,
		})

		return
	}

	summary, err := ctl.Processor.ProcessDocument(c.Request.Context(), &document, runID)
	if err != nil {
		ctl.writeError(c, err, runID, -1)

		return
	}

	c.JSON(http.StatusOK, summary)
}

func (ctl *Controller) readBatchRequest(c *gin.Context) (string, []byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		runID := c.PostForm("run_id")
		if runID == "" {
			return "", nil, domain.ErrEmptyRunID
		}

		fileHeader, err := c.FormFile("file")
		if err == nil {
			data, readErr := readUpload(fileHeader.Open())
			return runID, data, readErr
		}

		return readLocalDocument(runID, c.PostForm("file_path"))
	}

	var req BatchRequest

	err := c.ShouldBindJSON(&req)
	if err != nil {
		return "", nil, errors.New("malformed request body: " + err.Error())
	}

	if req.RunID == "" {
		return "", nil, domain.ErrEmptyRunID
	}

	return readLocalDocument(req.RunID, req.FilePath)
}

func readUpload(file io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, errors.New("failed to open uploaded file: " + err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read uploaded file: " + err.Error())
	}

	return data, nil
}

func readLocalDocument(runID, filePath string) (string, []byte, error) {
	if filePath == "" {
		return runID, nil, errors.New("either a file upload or a file path is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return runID, nil, errors.New("could not load document from path: " + err.Error())
	}

	return runID, data, nil
}

// GetResult handles GET /tts/result/:run_id, returning the persisted batch
// output document of a prior run.
func (ctl *Controller) GetResult(c *gin.Context) {
	runID := c.Param("run_id")

	data, err := ctl.Store.LoadDocument(runID)
	if err != nil {
		if errors.Is(err, mediastore.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run id not found"})

			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

// Health handles GET /health.
func (ctl *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps a classified error onto the wire: input errors are the
// caller's fault (422), everything else answers as a synthesis failure (500).
func (ctl *Controller) writeError(c *gin.Context, err error, runID string, dialogueID int) {
	kind, ok := domain.KindOf(err)
	if !ok {
		kind = domain.KindSynthesis
	}

	status := http.StatusInternalServerError
	if kind == domain.KindInput {
		status = http.StatusUnprocessableEntity
	}

	ctl.Log.Error("Request failed (run=%s dialogue=%d): %v", runID, dialogueID, err)

	c.JSON(status, ErrorResponse{
		Error:      string(kind),
		Message:    err.Error(),
		RunID:      runID,
		DialogueID: dialogueID,
	})
}
