package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/logger"
	"storefront/internal/prewarm"
	productsvc "storefront/internal/service/product"
	"storefront/internal/shopify"
)

func main() {
	var (
		filePath string
		flush    bool
	)
	flag.StringVar(&filePath, "file", "", "Path to a CSV plan (handle,sortKey,reverse,query)")
	flag.BoolVar(&flush, "flush", false, "Drop the products tag before warming")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Redis.Addr == "" {
		log.Fatal("REDIS_ADDR is required, an in-process cache would be discarded on exit")
	}

	ctx := context.Background()
	redisCache, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "storefront")
	if err != nil {
		log.Fatal("connect to redis", "addr", cfg.Redis.Addr, "error", err)
	}
	defer redisCache.Close()

	client := shopify.New(cfg.Shopify.Endpoint(), cfg.Shopify.AccessToken, shopify.WithTimeout(cfg.Shopify.Timeout))
	catalog := productsvc.New(client, redisCache, cfg.Redis.CacheTTL, log)

	if flush {
		if _, err := catalog.Revalidate(ctx, shopify.TagProducts); err != nil {
			log.Fatal("flush catalog", "error", err)
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("open plan", "file", filePath, "error", err)
	}
	defer f.Close()

	start := time.Now()
	res, err := prewarm.NewCSVPlan(f, catalog).Run(ctx)
	if err != nil {
		log.Fatal("prewarm failed", "error", err)
	}
	if len(res.Missing) > 0 {
		log.Warn("handles not found or hidden", "handles", res.Missing)
	}

	fmt.Printf("Warmed %d listings and %d products in %s\n", res.Listings, res.Products, time.Since(start).Truncate(time.Millisecond))
}
