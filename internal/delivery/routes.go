package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func RegisterRoutes(
	r chi.Router,
	hTTS *TTSHandler,
	hSTT *STTHandler,
	ttsPerMinute int,
) {
	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api", func(ar chi.Router) {
		// --- websocket: без обёрток над ResponseWriter, апгрейду нужен Hijacker ---
		ar.Get("/stt/stream", hSTT.Stream)

		ar.Group(func(pr chi.Router) {
			pr.Use(httputil.RecoverMiddleware)

			// --- text → speech ---
			pr.With(httprate.LimitByIP(ttsPerMinute, time.Minute)).
				Post("/tts", hTTS.Convert)

			// --- speech → text ---
			pr.Get("/stt/languages", hSTT.Languages)
		})
	})
}
