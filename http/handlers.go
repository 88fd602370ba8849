package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"flightprice/db"
	"flightprice/metrics"
	"flightprice/ml"
)

// 当前服务的预测器，训练完成或热加载后整体替换
var (
	predictorMu     sync.RWMutex
	activePredictor *ml.Predictor
)

// 预测结果缓存，key由请求字段拼接而成
var predictCache *lru.Cache[string, float64]

// InitPredictCache 初始化预测缓存，size<=0时禁用
func InitPredictCache(size int) error {
	if size <= 0 {
		predictCache = nil
		return nil
	}
	cache, err := lru.New[string, float64](size)
	if err != nil {
		return err
	}
	predictCache = cache
	return nil
}

// SetPredictor 替换当前预测器并清空缓存
func SetPredictor(p *ml.Predictor) {
	predictorMu.Lock()
	activePredictor = p
	predictorMu.Unlock()
	if predictCache != nil {
		predictCache.Purge()
	}
	if p != nil {
		artifact := p.Artifact()
		logger.Infow("model loaded",
			"model_type", artifact.ModelType,
			"trained_at", artifact.TrainedAt,
			"run_id", artifact.RunID,
		)
	}
}

func currentPredictor() *ml.Predictor {
	predictorMu.RLock()
	defer predictorMu.RUnlock()
	return activePredictor
}

// RegisterHandlers 注册预测服务的HTTP路由
func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/predict", handlePredictQuery)
	mux.HandleFunc("POST /api/predict", handlePredictBody)
	mux.HandleFunc("POST /api/batch-predict", handleBatchPredict)
	mux.HandleFunc("GET /api/model-info", handleModelInfo)
	mux.HandleFunc("GET /api/predictions/recent", handleRecentPredictions)
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnw("failed to encode response", "error", err)
	}
}

// respondError 统一错误响应
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"service":      "flight-price-prediction",
		"model_loaded": currentPredictor() != nil,
	})
}

// predictionEcho 回显请求摘要
type predictionEcho struct {
	Airline  string `json:"airline"`
	Route    string `json:"route"`
	Class    string `json:"class"`
	Stops    int    `json:"stops"`
	DaysLeft int    `json:"days_left"`
}

type predictionResponse struct {
	Status         string         `json:"status"`
	PredictedPrice float64        `json:"predicted_price"`
	Currency       string         `json:"currency"`
	Input          predictionEcho `json:"input"`
}

// handlePredictQuery GET查询参数方式，数字字段解析失败按0处理
func handlePredictQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	record := ml.FlightRecord{
		Airline:         q.Get("airline"),
		SourceCity:      q.Get("source_city"),
		DestinationCity: q.Get("destination_city"),
		Class:           q.Get("class"),
		DepartureTime:   q.Get("departure_time"),
		ArrivalTime:     q.Get("arrival_time"),
	}
	record.Stops, _ = strconv.Atoi(q.Get("stops"))
	record.DaysLeft, _ = strconv.Atoi(q.Get("days_left"))
	record.Duration, _ = strconv.ParseFloat(q.Get("duration"), 64)

	servePredict(w, record)
}

// handlePredictBody POST JSON方式
func handlePredictBody(w http.ResponseWriter, r *http.Request) {
	var record ml.FlightRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	servePredict(w, record)
}

// validateRequired 检查必填分类字段
func validateRequired(record ml.FlightRecord) error {
	required := []struct {
		name  string
		value string
	}{
		{"airline", record.Airline},
		{"source_city", record.SourceCity},
		{"destination_city", record.DestinationCity},
		{"class", record.Class},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("missing required field: %s", field.name)
		}
	}
	return nil
}

func cacheKey(record ml.FlightRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s|%s|%.1f|%d",
		record.Airline, record.SourceCity, record.DestinationCity, record.Class,
		record.Stops, record.DepartureTime, record.ArrivalTime,
		record.Duration, record.DaysLeft)
}

// predictOne 单条预测，带缓存
func predictOne(predictor *ml.Predictor, record ml.FlightRecord) (float64, bool, error) {
	key := cacheKey(record)
	if predictCache != nil {
		if price, ok := predictCache.Get(key); ok {
			metrics.CacheHits.Inc()
			return price, true, nil
		}
		metrics.CacheMisses.Inc()
	}

	price, err := predictor.Predict(record)
	if err != nil {
		return 0, false, err
	}
	// 保留两位小数
	price = math.Round(price*100) / 100
	if predictCache != nil {
		predictCache.Add(key, price)
	}
	return price, false, nil
}

func servePredict(w http.ResponseWriter, record ml.FlightRecord) {
	start := time.Now()
	predictor := currentPredictor()
	if predictor == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	modelType := predictor.Artifact().ModelType

	if err := validateRequired(record); err != nil {
		metrics.PredictionsTotal.WithLabelValues(modelType, "invalid").Inc()
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	price, cached, err := predictOne(predictor, record)
	if err != nil {
		var miss *ml.CategoryMissError
		if errors.As(err, &miss) {
			metrics.PredictionsTotal.WithLabelValues(modelType, "unknown_category").Inc()
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		metrics.PredictionsTotal.WithLabelValues(modelType, "error").Inc()
		logger.Errorw("prediction failed", "error", err)
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	metrics.PredictionsTotal.WithLabelValues(modelType, "success").Inc()
	metrics.PredictionLatency.WithLabelValues("predict").Observe(time.Since(start).Seconds())

	// 入库失败只记日志，不影响响应
	if err := db.SavePrediction(db.PredictionRecord{
		Airline:         record.Airline,
		SourceCity:      record.SourceCity,
		DestinationCity: record.DestinationCity,
		CabinClass:      record.Class,
		Stops:           record.Stops,
		DaysLeft:        record.DaysLeft,
		PredictedPrice:  price,
		ModelType:       modelType,
		CacheHit:        cached,
	}); err != nil {
		logger.Warnw("failed to persist prediction", "error", err)
	}

	respondJSON(w, http.StatusOK, predictionResponse{
		Status:         "success",
		PredictedPrice: price,
		Currency:       "USD",
		Input: predictionEcho{
			Airline:  record.Airline,
			Route:    record.SourceCity + " → " + record.DestinationCity,
			Class:    record.Class,
			Stops:    record.Stops,
			DaysLeft: record.DaysLeft,
		},
	})
}

// 批量预测上限，防止单请求占满服务
const maxBatchSize = 100

type batchRequest struct {
	Flights []ml.FlightRecord `json:"flights"`
}

type batchEntry struct {
	Index          int     `json:"index"`
	Status         string  `json:"status"`
	PredictedPrice float64 `json:"predicted_price,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// handleBatchPredict 批量预测，单条失败不影响其他
func handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	predictor := currentPredictor()
	if predictor == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	modelType := predictor.Artifact().ModelType

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Flights) == 0 {
		respondError(w, http.StatusBadRequest, "flights list is empty")
		return
	}
	if len(req.Flights) > maxBatchSize {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("too many flights: %d (max %d)", len(req.Flights), maxBatchSize))
		return
	}

	entries := make([]batchEntry, 0, len(req.Flights))
	successful := 0
	for i, record := range req.Flights {
		entry := batchEntry{Index: i}
		if err := validateRequired(record); err != nil {
			entry.Status = "error"
			entry.Error = err.Error()
			entries = append(entries, entry)
			continue
		}
		price, _, err := predictOne(predictor, record)
		if err != nil {
			entry.Status = "error"
			var miss *ml.CategoryMissError
			if errors.As(err, &miss) {
				entry.Error = err.Error()
			} else {
				logger.Errorw("batch prediction failed", "index", i, "error", err)
				entry.Error = "prediction failed"
			}
			entries = append(entries, entry)
			continue
		}
		entry.Status = "success"
		entry.PredictedPrice = price
		successful++
		entries = append(entries, entry)
	}

	metrics.PredictionsTotal.WithLabelValues(modelType, "success").Add(float64(successful))
	metrics.PredictionLatency.WithLabelValues("batch_predict").Observe(time.Since(start).Seconds())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "completed",
		"total":       len(req.Flights),
		"successful":  successful,
		"predictions": entries,
	})
}

// handleModelInfo 返回当前模型的元信息和已知类别
func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	predictor := currentPredictor()
	if predictor == nil {
		respondError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	artifact := predictor.Artifact()

	// 出发地和目的地合并去重
	citySet := make(map[string]bool)
	for _, city := range artifact.SourceMap.Values() {
		citySet[city] = true
	}
	for _, city := range artifact.DestMap.Values() {
		citySet[city] = true
	}
	cities := make([]string, 0, len(citySet))
	for city := range citySet {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"model": map[string]interface{}{
			"type":           artifact.ModelType,
			"schema_version": artifact.SchemaVersion,
			"trained_at":     artifact.TrainedAt,
			"run_id":         artifact.RunID,
		},
		"features": artifact.FeatureNames,
		"airlines": artifact.AirlineMap.Values(),
		"cities":   cities,
		"classes":  artifact.ClassMap.Values(),
		"performance": map[string]float64{
			"mae":       artifact.MAE,
			"rmse":      artifact.RMSE,
			"avg_price": artifact.AvgPrice,
		},
	})
}

// handleRecentPredictions 查询最近的预测记录
func handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 200 {
		limit = 200
	}

	records, err := db.RecentPredictions(limit)
	if err != nil {
		logger.Errorw("failed to query predictions", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to query predictions")
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"count":       len(records),
		"predictions": records,
	})
}
