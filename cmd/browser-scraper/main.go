package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

func main() {
	// 整个进程复用一个 headless 实例
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent("Mozilla/5.0 (compatible; LoudCurator/1.0)"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/extract", &extractHandler{
		extract: chromeExtractor(browserCtx, 20*time.Second),
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("browser-scraper listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

// chromeExtractor 每个请求开一个新 tab，并用独立超时
func chromeExtractor(browserCtx context.Context, timeout time.Duration) extractFunc {
	return func(ctx context.Context, pageURL string) (string, error) {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		tabCtx, cancel := context.WithTimeout(tabCtx, timeout)
		defer cancel()

		// 请求方断开时同时取消页面加载
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		var text string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(extractJS, &text),
		)
		return text, err
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
