// Package hume talks to the Hume expression-measurement API: batch jobs for
// recorded audio blobs and a websocket stream for incremental analysis. A
// failed remote call degrades to a fixed mock emotion set; the voice
// pipeline never sees a transport error from here.
package hume

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"flowdeck/pkg/result"
)

const (
	defaultBaseURL = "https://api.hume.ai"

	// Extraction limits for the emotion bars in the transcript panel.
	maxEmotions    = 6
	scoreThreshold = 0.1
)

// EmotionScore is one named affect with its confidence and display color.
type EmotionScore struct {
	Emotion string  `json:"emotion"`
	Value   float64 `json:"value"`
	Color   string  `json:"color"`
}

// Analysis is what one audio blob yields for the UI.
type Analysis struct {
	Emotions   []EmotionScore `json:"emotions"`
	Transcript string         `json:"transcript,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

type Config struct {
	APIKey    string
	SecretKey string
	ConfigID  string
	BaseURL   string
}

type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIKey == "" {
		logger.Warn("hume api key not set, serving mock emotion data")
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

type batchRequest struct {
	Models map[string]struct{} `json:"models"`
	Files  []batchFile         `json:"files"`
}

type batchFile struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// The prediction tree the batch API returns, pruned to the fields we read.
type batchResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	Models struct {
		Prosody struct {
			GroupedPredictions []struct {
				Predictions []struct {
					Emotions []rawEmotion `json:"emotions"`
				} `json:"predictions"`
			} `json:"grouped_predictions"`
		} `json:"prosody"`
		Language struct {
			GroupedPredictions []struct {
				Predictions []struct {
					Text string `json:"text"`
				} `json:"predictions"`
			} `json:"grouped_predictions"`
		} `json:"language"`
	} `json:"models"`
}

type rawEmotion struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// AnalyzeAudio submits a WAV blob to the batch endpoint and extracts the top
// emotions. Any failure falls back to MockAnalysis.
func (c *Client) AnalyzeAudio(ctx context.Context, audio []byte) result.Result[Analysis] {
	if c.cfg.APIKey == "" {
		return result.Fallback(MockAnalysis())
	}

	reqBody := batchRequest{
		Models: map[string]struct{}{"prosody": {}, "language": {}},
		Files: []batchFile{{
			Filename: "audio.wav",
			Data:     base64.StdEncoding.EncodeToString(audio),
		}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		c.logger.Error("marshal hume request", "error", err)
		return result.Fallback(MockAnalysis())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v0/batch/jobs", bytes.NewReader(body))
	if err != nil {
		return result.Fallback(MockAnalysis())
	}
	req.Header.Set("X-Hume-Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("hume call failed, using mock emotions", "error", err)
		return result.Fallback(MockAnalysis())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("hume call failed, using mock emotions", "status", resp.StatusCode)
		return result.Fallback(MockAnalysis())
	}

	var parsed batchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Predictions) == 0 {
		c.logger.Warn("unexpected hume response, using mock emotions")
		return result.Fallback(MockAnalysis())
	}

	return result.Live(extract(parsed.Predictions[0]))
}

func extract(p prediction) Analysis {
	var raw []rawEmotion
	groups := p.Models.Prosody.GroupedPredictions
	if len(groups) > 0 && len(groups[0].Predictions) > 0 {
		raw = groups[0].Predictions[0].Emotions
	}

	analysis := Analysis{
		Emotions:   ExtractEmotions(raw),
		Confidence: 0.85,
	}

	lang := p.Models.Language.GroupedPredictions
	if len(lang) > 0 && len(lang[0].Predictions) > 0 {
		analysis.Transcript = lang[0].Predictions[0].Text
	}
	return analysis
}

// ExtractEmotions keeps at most 6 scores above 0.1, sorted descending, and
// maps each name through the color table.
func ExtractEmotions(raw []rawEmotion) []EmotionScore {
	kept := make([]rawEmotion, 0, len(raw))
	for _, e := range raw {
		if e.Score > scoreThreshold {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	if len(kept) > maxEmotions {
		kept = kept[:maxEmotions]
	}

	out := make([]EmotionScore, 0, len(kept))
	for _, e := range kept {
		name := capitalize(e.Name)
		out = append(out, EmotionScore{
			Emotion: name,
			Value:   e.Score,
			Color:   Color(name),
		})
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// MockAnalysis is the fixed demo-mode answer used whenever the remote call
// cannot be made or fails.
func MockAnalysis() Analysis {
	return Analysis{
		Emotions: []EmotionScore{
			{Emotion: "Interest", Value: 0.42, Color: Color("Interest")},
			{Emotion: "Calmness", Value: 0.35, Color: Color("Calmness")},
			{Emotion: "Joy", Value: 0.24, Color: Color("Joy")},
			{Emotion: "Excitement", Value: 0.18, Color: Color("Excitement")},
		},
		Transcript: "Audio analysis in demo mode",
		Confidence: 0.75,
	}
}
