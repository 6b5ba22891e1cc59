package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"hotel-admin-go/internal/bootstrap"
	"hotel-admin-go/internal/platform/config"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to $HOTEL_ADMIN_CONFIG or ./config.yaml)")
	flag.Parse()

	fmt.Printf("[%s] [INFO] [引导] 开始启动 hotel-admin...\n", time.Now().Format("2006-01-02 15:04:05.000"))

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithPath(*configPath)
	}
	if err := bootstrap.Run(context.Background(), loader); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "hotel-admin failed: %v\n", err)
		os.Exit(1)
	}
}
