package main

import (
	"flag"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/health -interval=5s -timeout=2m
func main() {
	url := flag.String("url", "http://localhost:8080/health", "the health endpoint of the service")
	interval := flag.Duration("interval", 5*time.Second, "the time between two attempts")
	timeout := flag.Duration("timeout", 0, "give up after this time, 0 waits forever")
	flag.Parse()

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	client := &http.Client{Timeout: *interval}
	start := time.Now()
	for {
		res, err := client.Get(*url)
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				log.Info("service is available", zap.String("url", *url), zap.Duration("waited", time.Since(start)))
				return
			}
			log.Info("service is not ready", zap.Int("status", res.StatusCode))
		} else {
			log.Info("service is not reachable", zap.Error(err))
		}
		if *timeout > 0 && time.Since(start) > *timeout {
			log.Fatal("giving up", zap.Duration("waited", time.Since(start)))
		}
		log.Info("waiting", zap.Duration("total", time.Since(start)+*interval))
		time.Sleep(*interval)
	}
}
