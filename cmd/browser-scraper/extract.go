package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultMaxChars = 4000
	maxMaxChars     = 8000
)

type extractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type extractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type extractFunc func(ctx context.Context, pageURL string) (string, error)

// extractHandler POST /extract {url,maxChars} -> {ok,text,error}；抽取失败也返回 200，由 ok 区分
type extractHandler struct {
	extract extractFunc
}

func (h *extractHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, extractResponse{Error: "invalid json"})
		return
	}
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeJSON(w, http.StatusBadRequest, extractResponse{Error: "url must be an absolute http(s) url"})
		return
	}
	if req.MaxChars <= 0 || req.MaxChars > maxMaxChars {
		req.MaxChars = defaultMaxChars
	}

	text, err := h.extract(r.Context(), u.String())
	if err != nil {
		log.Printf("extract %s error: %v", u, err)
		writeJSON(w, http.StatusOK, extractResponse{Error: err.Error()})
		return
	}

	text = trimWhitespace(text)
	if text == "" {
		writeJSON(w, http.StatusOK, extractResponse{Error: "empty content"})
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{OK: true, Text: truncateRunes(text, req.MaxChars)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}

// trimWhitespace 统一换行并压缩连续空行
func trimWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// extractJS 在页面里提取正文：先找新闻站常见的正文容器，找不到再拼接全页较长段落。
// 导航、页脚、订阅框之类的区块先移除。
const extractJS = `(function () {
  var noise = ["nav", "header", "footer", "aside", "script", "style", "form",
    ".newsletter", ".subscribe", ".related", ".share", ".social", ".ad", "[role=complementary]"];
  noise.forEach(function (sel) {
    document.querySelectorAll(sel).forEach(function (n) { n.remove(); });
  });

  var selectors = [
    "article .article-body",
    "article .entry-content",
    "div.article-body",
    "div.story-body",
    "div.entry-content",
    "div.post-content",
    "[itemprop=articleBody]",
    "article",
    "main"
  ];

  var text = "";
  for (var i = 0; i < selectors.length; i++) {
    var el = document.querySelector(selectors[i]);
    text = el ? (el.innerText || "").trim() : "";
    if (text.length > 200) break;
  }

  if (text.length < 200) {
    var pieces = [];
    var nodes = document.querySelectorAll("p");
    for (var j = 0; j < nodes.length; j++) {
      var t = (nodes[j].innerText || "").trim();
      if (t.length >= 40) pieces.push(t);
      if (pieces.join("\n\n").length > 8000) break;
    }
    text = pieces.join("\n\n");
  }
  return text;
})();`
