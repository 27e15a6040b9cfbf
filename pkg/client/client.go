// Package client is a typed Go client for the genex server.
// It wraps the HTTP API with context-aware methods and provides a fluent
// builder for simulation parameter sets.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/phetsims/gene-expression-basics/internal/genex"
)

// ParametersBuilder provides a fluent API for building simulation parameter
// sets. It starts from the engine defaults, so callers only override the
// values they care about.
type ParametersBuilder struct {
	params genex.Parameters
}

// NewParameters creates a parameters builder seeded with the default
// parameter set.
func NewParameters() *ParametersBuilder {
	return &ParametersBuilder{params: *genex.DefaultParameters()}
}

// InterPointDistance sets the rest spacing between consecutive
// shape-defining points on a strand.
func (pb *ParametersBuilder) InterPointDistance(d float64) *ParametersBuilder {
	pb.params.InterPointDistance = d
	return pb
}

// LeaderLength sets the fixed length of strand that protrudes ahead of any
// channel engagement.
func (pb *ParametersBuilder) LeaderLength(l float64) *ParametersBuilder {
	pb.params.LeaderLength = l
	return pb
}

// TranscriptionRate sets the per-second rate at which polymerase synthesizes
// new strand.
func (pb *ParametersBuilder) TranscriptionRate(rate float64) *ParametersBuilder {
	pb.params.TranscriptionRate = rate
	return pb
}

// TranslationRate sets the per-second rate at which ribosomes pull strand
// through their channel.
func (pb *ParametersBuilder) TranslationRate(rate float64) *ParametersBuilder {
	pb.params.TranslationRate = rate
	return pb
}

// DestructionRate sets the per-second rate at which destroyers consume
// strand.
func (pb *ParametersBuilder) DestructionRate(rate float64) *ParametersBuilder {
	pb.params.DestructionRate = rate
	return pb
}

// RibosomeChannelLength sets the default channel length for ribosomes
// created without an explicit one.
func (pb *ParametersBuilder) RibosomeChannelLength(l float64) *ParametersBuilder {
	pb.params.RibosomeChannelLength = l
	return pb
}

// DestroyerChannelLength sets the default channel length for destroyers
// created without an explicit one.
func (pb *ParametersBuilder) DestroyerChannelLength(l float64) *ParametersBuilder {
	pb.params.DestroyerChannelLength = l
	return pb
}

// DetachRates sets the spontaneous per-second detachment rates for ribosomes
// and polymerase. Zero disables spontaneous detachment.
func (pb *ParametersBuilder) DetachRates(ribosome, polymerase float64) *ParametersBuilder {
	pb.params.RibosomeDetachRate = ribosome
	pb.params.PolymeraseDetachRate = polymerase
	return pb
}

// AttachMotion sets the speed toward an accepted site and the distance at
// which arrival counts as a physical connection.
func (pb *ParametersBuilder) AttachMotion(speed, arrivalDistance float64) *ParametersBuilder {
	pb.params.AttachMoveSpeed = speed
	pb.params.ArrivalDistance = arrivalDistance
	return pb
}

// WanderSpeed sets the speed of unattached random-walk motion.
func (pb *ParametersBuilder) WanderSpeed(speed float64) *ParametersBuilder {
	pb.params.WanderSpeed = speed
	return pb
}

// MotionBounds confines random-walk motion to the given rectangle.
func (pb *ParametersBuilder) MotionBounds(bounds genex.Rect) *ParametersBuilder {
	pb.params.MotionBounds = bounds
	return pb
}

// FadeInsteadOfTranslating makes fully synthesized, unattached strands fade
// away at the given rate rather than wait for translation.
func (pb *ParametersBuilder) FadeInsteadOfTranslating(rate float64) *ParametersBuilder {
	pb.params.FadeInsteadOfTranslating = true
	pb.params.FadeRate = rate
	return pb
}

// PolymeraseRecycleZone enables recycle mode: detached polymerase drifts to
// the given return zone before becoming available again.
func (pb *ParametersBuilder) PolymeraseRecycleZone(zone genex.Rect) *ParametersBuilder {
	pb.params.PolymeraseRecycleMode = true
	pb.params.PolymeraseReturnZone = zone
	return pb
}

// Build returns a copy of the assembled parameter set.
func (pb *ParametersBuilder) Build() genex.Parameters {
	return pb.params
}

// Client talks to one simulation on a genex server.
type Client struct {
	baseURL    string
	simID      string
	httpClient *http.Client
}

// New creates a client for the given server base URL (e.g.
// "http://localhost:8080") and simulation ID.
func New(baseURL, simID string) *Client {
	return &Client{
		baseURL:    baseURL,
		simID:      simID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client, for callers that need
// custom transports or timeouts.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) simURL(parts ...string) (string, error) {
	elems := append([]string{"sim", c.simID}, parts...)
	return url.JoinPath(c.baseURL, elems...)
}

func (c *Client) do(ctx context.Context, method, u string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ApplyParameters creates the simulation with the built parameter set, or
// updates its parameters in place when it already exists.
func (c *Client) ApplyParameters(ctx context.Context, pb *ParametersBuilder) error {
	u, err := c.simURL("params")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	params := pb.Build()
	return c.doText(ctx, http.MethodPost, u, params)
}

// doText is do for endpoints that answer with a plain-text body.
func (c *Client) doText(ctx context.Context, method, u string, body any) error {
	return c.do(ctx, method, u, body, nil)
}

// Parameters fetches the simulation's current parameter set.
func (c *Client) Parameters(ctx context.Context) (*genex.Parameters, error) {
	u, err := c.simURL("params")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	var params genex.Parameters
	if err := c.do(ctx, http.MethodGet, u, nil, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

type idResponse struct {
	ID string `json:"id"`
}

// AddGene places a gene on the DNA strand and returns its ID.
func (c *Client) AddGene(ctx context.Context, start genex.Vector2, length float64) (string, error) {
	u, err := c.simURL("gene")
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}
	body := map[string]any{"start": start, "length": length}
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, u, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) addBiomolecule(ctx context.Context, kind string, pos genex.Vector2, channelLength float64) (string, error) {
	u, err := c.simURL("biomolecule")
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}
	body := map[string]any{"kind": kind, "position": pos, "channel_length": channelLength}
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, u, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// AddRibosome adds a ribosome at the given position. A zero channelLength
// uses the simulation's default.
func (c *Client) AddRibosome(ctx context.Context, pos genex.Vector2, channelLength float64) (string, error) {
	return c.addBiomolecule(ctx, "ribosome", pos, channelLength)
}

// AddPolymerase adds an RNA polymerase at the given position.
func (c *Client) AddPolymerase(ctx context.Context, pos genex.Vector2) (string, error) {
	return c.addBiomolecule(ctx, "polymerase", pos, 0)
}

// AddDestroyer adds an mRNA destroyer at the given position. A zero
// channelLength uses the simulation's default.
func (c *Client) AddDestroyer(ctx context.Context, pos genex.Vector2, channelLength float64) (string, error) {
	return c.addBiomolecule(ctx, "destroyer", pos, channelLength)
}

// SpawnStrand spawns a fully synthesized free strand, as if transcription
// had already completed, and returns its ID.
func (c *Client) SpawnStrand(ctx context.Context, pos genex.Vector2, length float64) (string, error) {
	u, err := c.simURL("strand")
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}
	body := map[string]any{"position": pos, "length": length}
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, u, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Tick advances the simulation by dt simulated seconds.
func (c *Client) Tick(ctx context.Context, dt float64) error {
	u, err := c.simURL("tick")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	return c.doText(ctx, http.MethodPost, fmt.Sprintf("%s?dt=%g", u, dt), nil)
}

// Start begins auto-running the simulation with the given tick interval.
func (c *Client) Start(ctx context.Context, interval time.Duration) error {
	u, err := c.simURL("start")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	return c.doText(ctx, http.MethodPost, fmt.Sprintf("%s?interval=%d", u, interval.Milliseconds()), nil)
}

// Stop halts an auto-running simulation.
func (c *Client) Stop(ctx context.Context) error {
	u, err := c.simURL("stop")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	return c.doText(ctx, http.MethodPost, u, nil)
}

// State fetches a consistent read-only view of the whole simulation.
func (c *Client) State(ctx context.Context) (*genex.StateView, error) {
	u, err := c.simURL("state")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	var state genex.StateView
	if err := c.do(ctx, http.MethodGet, u, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// AbortDestruction recalls a destroyer that has claimed the strand but not
// yet begun consuming it.
func (c *Client) AbortDestruction(ctx context.Context, strandID string) error {
	u, err := c.simURL("abort-destruction")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	return c.doText(ctx, http.MethodPost, u, map[string]string{"strand_id": strandID})
}

// SaveSnapshot asks the server to write a snapshot file and returns the
// server-side path.
func (c *Client) SaveSnapshot(ctx context.Context) (string, error) {
	u, err := c.simURL("snapshot")
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}
	var resp map[string]string
	if err := c.do(ctx, http.MethodPost, u, nil, &resp); err != nil {
		return "", err
	}
	return resp["path"], nil
}

// GetSnapshot fetches the last saved snapshot.
func (c *Client) GetSnapshot(ctx context.Context) (genex.Snapshot, error) {
	u, err := c.simURL("snapshot")
	if err != nil {
		return genex.Snapshot{}, fmt.Errorf("failed to build URL: %w", err)
	}
	var snap genex.Snapshot
	if err := c.do(ctx, http.MethodGet, u, nil, &snap); err != nil {
		return genex.Snapshot{}, err
	}
	return snap, nil
}

// RestoreSnapshot replaces the simulation's contents with the snapshot's.
func (c *Client) RestoreSnapshot(ctx context.Context, snap genex.Snapshot) error {
	u, err := c.simURL("restore")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	return c.doText(ctx, http.MethodPost, u, snap)
}

// DeleteSimulation stops and removes the simulation.
func (c *Client) DeleteSimulation(ctx context.Context) error {
	u, err := c.simURL()
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	return c.doText(ctx, http.MethodDelete, u, nil)
}

// ListSimulations returns the IDs of all simulations on the server.
func (c *Client) ListSimulations(ctx context.Context) ([]string, error) {
	u, err := url.JoinPath(c.baseURL, "sims")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	var resp map[string][]string
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return resp["simulations"], nil
}

// RegisterWebhook registers a webhook notifier that receives every lifecycle
// event the server dispatches.
func (c *Client) RegisterWebhook(ctx context.Context, id, webhookURL string, headers map[string]string) error {
	u, err := url.JoinPath(c.baseURL, "notifiers")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	config := map[string]any{"url": webhookURL}
	if len(headers) > 0 {
		config["headers"] = headers
	}
	body := map[string]any{"type": "webhook", "id": id, "config": config}
	return c.doText(ctx, http.MethodPost, u, body)
}

// UnregisterNotifier removes a previously registered notifier.
func (c *Client) UnregisterNotifier(ctx context.Context, id string) error {
	u, err := url.JoinPath(c.baseURL, "notifiers", id)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	return c.doText(ctx, http.MethodDelete, u, nil)
}
