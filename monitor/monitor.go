package monitor

import (
	"context"
	"crypto/subtle"
	"html/template"
	"net/http"
	"os"

	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
)

const maxLogTail = 256 * 1024

// StatsSource reports catalogue and user counts.
type StatsSource interface {
	Stats(ctx context.Context) (*services.Stats, error)
}

func authorized(c *gin.Context, token string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Query("token")), []byte(token)) == 1
}

var monitorPage = template.Must(template.New("monitor").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>Faculty Ranker Monitor</title>
  <style>
    body { background: #0f0f14; color: #e0e0e0; font-family: system-ui, sans-serif; padding: 20px; }
    pre { background: #111827; padding: 1rem; border-radius: 8px; max-height: 60vh; overflow-y: auto; white-space: pre-wrap; }
    .stats span { margin-right: 1.5rem; }
  </style>
</head>
<body>
  <h1>Faculty Ranker Monitor</h1>
  <div class="stats" id="stats">Loading...</div>
  <pre id="logs">Loading logs...</pre>
  <script>
    const token = {{.Token}};
    function refresh() {
      fetch('/monitor/stats?token=' + encodeURIComponent(token))
        .then(res => res.json())
        .then(s => {
          document.getElementById('stats').innerHTML =
            '<span>Verified: ' + s.verifiedFaculty + '</span>' +
            '<span>Pending: ' + s.pendingFaculty + '</span>' +
            '<span>Users: ' + s.users + ' (' + s.bannedUsers + ' banned)</span>' +
            '<span>Uptime: ' + s.uptime + '</span>';
        });
      fetch('/logs?token=' + encodeURIComponent(token))
        .then(res => res.text())
        .then(data => {
          const el = document.getElementById('logs');
          el.textContent = data;
          el.scrollTop = el.scrollHeight;
        });
    }
    refresh();
    setInterval(refresh, 5000);
  </script>
</body>
</html>`))

// RegisterMonitorPage mounts /monitor, /monitor/stats and /logs behind token.
// Nothing is mounted when token is empty.
func RegisterMonitorPage(router *gin.Engine, token, logPath string, stats StatsSource) {
	if token == "" {
		return
	}

	router.GET("/monitor", func(c *gin.Context) {
		if !authorized(c, token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := monitorPage.Execute(c.Writer, gin.H{"Token": token}); err != nil {
			c.Status(http.StatusInternalServerError)
		}
	})

	router.GET("/monitor/stats", func(c *gin.Context) {
		if !authorized(c, token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		s, err := stats.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to load stats"})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	router.GET("/logs", func(c *gin.Context) {
		if !authorized(c, token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		logData, err := readTail(logPath, maxLogTail)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
	})
}

// readTail returns at most the last n bytes of the file at path.
func readTail(path string, n int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := info.Size() - n
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}
