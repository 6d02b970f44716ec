package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"rostersync/internal/notification/models"
	"rostersync/internal/upstream"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func recipient() models.Recipient {
	return models.Recipient{
		UserID:       uuid.New(),
		DisplayName:  "Ana Diaz",
		Email:        "ana@example.com",
		Prefs:        models.Prefs{PushEnabled: true, EmailEnabled: true},
		DeviceTokens: []models.DeviceToken{{Token: "tok-1", Platform: "ios"}},
	}
}

func TestKafkaPush(t *testing.T) {
	t.Run("publishes one record keyed by user", func(t *testing.T) {
		producer := &recordingProducer{}
		push := NewKafkaPush(producer, "rostersync.push")
		push.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
		r := recipient()

		err := push.SendPush(context.Background(), r, models.Copy{Title: "New shift added", Body: "Tue 9-5"})

		require.NoError(t, err)
		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, "rostersync.push", rec.Topic)
		assert.Equal(t, r.UserID.String(), string(rec.Key))

		var msg PushMessage
		require.NoError(t, json.Unmarshal(rec.Value, &msg))
		assert.Equal(t, r.UserID, msg.UserID)
		assert.Equal(t, "New shift added", msg.Title)
		assert.Equal(t, models.TypeShiftChange, msg.Type)
		assert.Equal(t, r.DeviceTokens, msg.Tokens)
	})

	t.Run("produce failure is retryable", func(t *testing.T) {
		producer := &recordingProducer{err: errors.New("broker gone")}

		err := NewKafkaPush(producer, "t").SendPush(context.Background(), recipient(), models.Fallback())

		assert.True(t, upstream.IsRetryable(err))
	})
}

func TestEmailRelay(t *testing.T) {
	t.Run("posts subject and text", func(t *testing.T) {
		var got relayMessage
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		err := NewEmailRelay(srv.URL, 0).SendEmail(context.Background(), recipient(), models.Copy{Title: "T", Body: "B"})

		require.NoError(t, err)
		assert.Equal(t, `"Ana Diaz" <ana@example.com>`, got.To)
		assert.Equal(t, "T", got.Subject)
		assert.Equal(t, "B", got.Text)
	})

	t.Run("relay outage is retryable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewEmailRelay(srv.URL, 0).SendEmail(context.Background(), recipient(), models.Fallback())

		assert.True(t, upstream.IsRetryable(err))
	})

	t.Run("invalid address fails before sending", func(t *testing.T) {
		r := recipient()
		r.Email = "nope"
		err := NewEmailRelay("http://127.0.0.1:1", 0).SendEmail(context.Background(), r, models.Fallback())
		assert.ErrorContains(t, err, "recipient address")
	})
}
