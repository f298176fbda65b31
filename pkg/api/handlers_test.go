package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StickerRadar/pkg/api"
	"StickerRadar/pkg/cache"
	"StickerRadar/pkg/engine"
	"StickerRadar/pkg/model"
	"StickerRadar/pkg/repository"
	"StickerRadar/pkg/store"
)

func newTestServer(t *testing.T) (*api.Server, *repository.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	repo, err := repository.NewRepository(fs)
	require.NoError(t, err)

	server := api.NewServer("0", time.Second, time.Second)
	server.SetupRoutes(api.NewHandlers(repo, repo, nil, nil))
	return server, repo
}

func doJSON(t *testing.T, server *api.Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func collectionBody() map[string]interface{} {
	return map[string]interface{}{
		"owner_user_id":   100,
		"display_name":    "Fun Pack",
		"good_name":       "funpack/hero",
		"launch_price":    "10",
		"buy_multiplier":  "2",
		"sell_multiplier": "3",
	}
}

func TestHealthAndReady(t *testing.T) {
	server, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, doJSON(t, server, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, server, http.MethodGet, "/ready", nil).Code)
}

func TestCreateCollection(t *testing.T) {
	server, repo := newTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/collections", collectionBody())
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data model.Collection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.ID)

	saved, err := repo.Get(resp.Data.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, int64(100), saved.OwnerUserID)
}

func TestCreateCollection_InvalidRejected(t *testing.T) {
	server, _ := newTestServer(t)

	body := collectionBody()
	body["launch_price"] = "0"

	w := doJSON(t, server, http.MethodPost, "/api/v1/collections", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCollection_MissingOwner(t *testing.T) {
	server, _ := newTestServer(t)

	body := collectionBody()
	delete(body, "owner_user_id")

	w := doJSON(t, server, http.MethodPost, "/api/v1/collections", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCollections_ByUser(t *testing.T) {
	server, _ := newTestServer(t)

	require.Equal(t, http.StatusCreated,
		doJSON(t, server, http.MethodPost, "/api/v1/collections", collectionBody()).Code)

	other := collectionBody()
	other["owner_user_id"] = 200
	other["good_name"] = "otherpack/villain"
	require.Equal(t, http.StatusCreated,
		doJSON(t, server, http.MethodPost, "/api/v1/collections", other).Code)

	w := doJSON(t, server, http.MethodGet, "/api/v1/collections?user_id=100", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []model.Collection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(100), resp.Data[0].OwnerUserID)
}

func TestUpdateCollection(t *testing.T) {
	server, repo := newTestServer(t)

	created := doJSON(t, server, http.MethodPost, "/api/v1/collections", collectionBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var resp struct {
		Data model.Collection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	body := collectionBody()
	body["display_name"] = "Renamed"
	w := doJSON(t, server, http.MethodPut, "/api/v1/collections/"+resp.Data.ID, body)
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := repo.Get(resp.Data.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Renamed", saved.DisplayName)
}

func TestUpdateCollection_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(t, server, http.MethodPut, "/api/v1/collections/ghost", collectionBody())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCollection(t *testing.T) {
	server, repo := newTestServer(t)

	created := doJSON(t, server, http.MethodPost, "/api/v1/collections", collectionBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var resp struct {
		Data model.Collection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	w := doJSON(t, server, http.MethodDelete, "/api/v1/collections/"+resp.Data.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	saved, err := repo.Get(resp.Data.ID)
	require.NoError(t, err)
	assert.Nil(t, saved)

	w = doJSON(t, server, http.MethodDelete, "/api/v1/collections/"+resp.Data.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAlertHistory(t *testing.T) {
	server, repo := newTestServer(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveAlert(&model.PriceAlert{
			UserID:      100,
			Direction:   model.DirectionBuy,
			DisplayName: fmt.Sprintf("alert-%d", i),
		}))
	}

	w := doJSON(t, server, http.MethodGet, "/api/v1/alerts/history?user_id=100&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []model.PriceAlert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "alert-2", resp.Data[0].DisplayName)
}

func TestManualCheck_UnavailableWithoutEngine(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/check?user_id=100", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestParseUserID_Invalid(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/api/v1/collections?user_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type idleFetcher struct{}

func (idleFetcher) Fetch(ctx context.Context, goodNames map[string]struct{}) (map[string]model.MarketSnapshot, error) {
	return map[string]model.MarketSnapshot{}, nil
}

type silentNotifier struct{}

func (silentNotifier) SendPriceAlert(ctx context.Context, userID int64, alert model.PriceAlert) error {
	return nil
}
func (silentNotifier) SendText(ctx context.Context, userID int64, text string) error { return nil }

type discardPersister struct{}

func (discardPersister) SaveCache(snapshots map[string]model.MarketSnapshot) error { return nil }
func (discardPersister) SaveLedger(states map[string]model.AlertState) error       { return nil }

func newEngineTestServer(t *testing.T) (*api.Server, *engine.MonitorEngine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	repo, err := repository.NewRepository(fs)
	require.NoError(t, err)

	eng := engine.NewMonitorEngine(idleFetcher{}, cache.NewPriceCache(), engine.NewNotificationLedger(),
		repo, silentNotifier{}, discardPersister{}, time.Minute, 1)

	server := api.NewServer("0", time.Second, time.Second)
	server.SetupRoutes(api.NewHandlers(repo, repo, eng, nil))
	return server, eng
}

func TestUpdateCollection_RearmsAlertStates(t *testing.T) {
	server, eng := newEngineTestServer(t)

	created := doJSON(t, server, http.MethodPost, "/api/v1/collections", collectionBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var resp struct {
		Data model.Collection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))
	id := resp.Data.ID

	// 先触发一次买入提醒，状态进入已触发
	require.True(t, eng.Ledger().ShouldFire(100, id, model.DirectionBuy, true, decimal.NewFromInt(15)))
	state, ok := eng.Ledger().State(100, id, model.DirectionBuy)
	require.True(t, ok)
	require.False(t, state.Armed)

	// 编辑藏品后台账重置，同一条件可以再次触发
	body := collectionBody()
	body["buy_multiplier"] = "1.5"
	w := doJSON(t, server, http.MethodPut, "/api/v1/collections/"+id, body)
	require.Equal(t, http.StatusOK, w.Code)

	state, ok = eng.Ledger().State(100, id, model.DirectionBuy)
	require.True(t, ok)
	assert.True(t, state.Armed)
	assert.True(t, eng.Ledger().ShouldFire(100, id, model.DirectionBuy, true, decimal.NewFromInt(15)))
}

func TestDeleteCollection_DropsAlertStates(t *testing.T) {
	server, eng := newEngineTestServer(t)

	created := doJSON(t, server, http.MethodPost, "/api/v1/collections", collectionBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var resp struct {
		Data model.Collection `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))
	id := resp.Data.ID

	require.True(t, eng.Ledger().ShouldFire(100, id, model.DirectionSell, true, decimal.NewFromInt(35)))

	w := doJSON(t, server, http.MethodDelete, "/api/v1/collections/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := eng.Ledger().State(100, id, model.DirectionSell)
	assert.False(t, ok)
}
