// seedlegs inserts sample trade-leg records into the record store for local
// development. Production records come from the upstream trade-entry process;
// this tool only exists so the dashboard has something to show on a laptop.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"trade-trackerv1/config"
	"trade-trackerv1/internal/markethours"
	"trade-trackerv1/internal/model"
	redisstore "trade-trackerv1/internal/store/redis"

	"github.com/google/uuid"
)

func main() {
	var (
		batches = flag.Int("batches", 2, "number of trade batches to create")
		name    = flag.String("name", "NIFTY", "instrument family name")
		strike  = flag.Float64("strike", 19500, "base strike; successive batches step by 100")
	)
	flag.Parse()

	cfg := config.Load()
	store, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[seedlegs] record store init failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now().In(markethours.IST)
	inserted := 0
	for b := 0; b < *batches; b++ {
		// One batch per minute, stepping back in time so batch keys differ.
		ts := now.Add(-time.Duration(b) * time.Minute).Format("2006-01-02T15:04:05.000")
		st := *strike + float64(b*100)

		for _, side := range []model.OptionType{model.Call, model.Put} {
			rec := model.TradeLegRecord{
				Key:            uuid.NewString(),
				Time:           ts,
				Name:           *name,
				Strike:         st,
				InstrumentType: side,
				SL:             0,
			}
			if err := store.InsertLeg(ctx, rec); err != nil {
				log.Fatalf("[seedlegs] insert failed: %v", err)
			}
			inserted++
		}
	}

	log.Printf("[seedlegs] inserted %d legs across %d batches", inserted, *batches)
}
