//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/adapter/automation"
	httpadapter "github.com/couchcryptid/tree-request-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tree-request-service/internal/adapter/kafka"
	"github.com/couchcryptid/tree-request-service/internal/adapter/postgres"
	"github.com/couchcryptid/tree-request-service/internal/adapter/redislock"
	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/couchcryptid/tree-request-service/internal/observability"
	"github.com/couchcryptid/tree-request-service/internal/planting"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "tree-requests-test"

// fakeSidecar stands in for the 311 browser automation and issues sequential SR numbers.
func fakeSidecar(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var sub domain.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"sr_number": fmt.Sprintf("SR24-%08d", n),
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// TestPlantFlow drives a plant request through HTTP, Postgres and Kafka.
func TestPlantFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := startPostgres(ctx, t)
	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	repo := postgres.NewRepository(pool)

	writer := kafkaadapter.NewWriter([]string{broker}, testTopic, logger)
	t.Cleanup(func() { _ = writer.Close() })

	sidecar, calls := fakeSidecar(t)
	client := automation.NewClient(sidecar.URL, automation.Options{
		Timeout:       10 * time.Second,
		MaxSessions:   1,
		RatePerMinute: 600,
		Burst:         5,
	}, metrics, logger)
	submitter := planting.SubmitterFunc(func(ctx context.Context) (planting.Session, error) {
		s, err := client.Open(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	orch := planting.New(repo, submitter, redislock.NewLocalLocker(), writer, metrics, logger)
	srv := httptest.NewServer(httpadapter.NewServer(":0", orch, repo, repo, []string{"*"}, logger))
	t.Cleanup(srv.Close)

	post := func(body string) map[string]any {
		resp, err := http.Post(srv.URL+"/plant-tree", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	first := post(`{"address":"1234 North Western Avenue, Chicago, IL","numTrees":3}`)
	assert.Equal(t, true, first["success"])
	assert.Equal(t, "SR24-00000001", first["srNumber"])

	second := post(`{"address":"1234 N Western Ave"}`)
	assert.Equal(t, true, second["alreadyExists"])
	assert.Equal(t, int32(1), calls.Load(), "duplicate must not reach 311")

	row, err := repo.FindByStreetAddress(ctx, "1234 N Western Ave")
	require.NoError(t, err)
	assert.Equal(t, 3, row.NumTrees)
	assert.Equal(t, domain.LongParkwayLocation, row.Location)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "SR24-00000001", string(msg.Key))
	assert.Equal(t, kafkaadapter.EventTypeSubmitted, headers["event_type"])
	_, err = time.Parse(time.RFC3339, headers["requested_at"])
	assert.NoError(t, err)

	var published domain.TreeRequest
	require.NoError(t, json.Unmarshal(msg.Value, &published))
	assert.Equal(t, row.ID, published.ID)
	assert.Equal(t, "1234 N Western Ave", published.StreetAddress)
}
