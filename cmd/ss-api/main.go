package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"StreamSpectra/internal/config"
	"StreamSpectra/internal/query"

	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Find the first enabled ClickHouse writer config
	var chCfg *config.ClickHouseConfig
	for _, writerDef := range cfg.Writers {
		if writerDef.Enabled && writerDef.Type == "clickhouse" {
			chCfg = &writerDef.ClickHouse
			break
		}
	}

	if chCfg == nil {
		log.Fatalf("No enabled ClickHouse writer found in config. API server cannot start.")
	}

	querier, err := query.NewClickHouseQuerier(*chCfg)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	r := mux.NewRouter()

	apiHandler := &APIHandler{querier: querier}

	r.HandleFunc("/api/v1/flows", apiHandler.matchedFlowsHandler).Methods("GET")
	r.HandleFunc("/api/v1/flows/count", apiHandler.countHandler).Methods("GET")

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown on interrupt.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping API server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Shutdown complete.")
}

// APIHandler serves the matched-flows query endpoints.
type APIHandler struct {
	querier query.Querier
}

func (h *APIHandler) matchedFlowsHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filter := query.FlowFilter{
		DestIP:   params.Get("destIP"),
		SourceIP: params.Get("sourceIP"),
	}
	if v := params.Get("since"); v != "" {
		filter.SinceTime, _ = strconv.ParseFloat(v, 64)
	}
	if v := params.Get("until"); v != "" {
		filter.UntilTime, _ = strconv.ParseFloat(v, 64)
	}
	if v := params.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	records, err := h.querier.MatchedFlows(r.Context(), filter)
	if err != nil {
		log.Printf("matched flows query failed: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *APIHandler) countHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.querier.CountMatched(r.Context())
	if err != nil {
		log.Printf("count query failed: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]uint64{"count": count})
}
