package server

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"rusuban/internal/clips"
	"rusuban/internal/settings"
)

// snapshotCacheKey はスナップショットのキャッシュキー
const snapshotCacheKey = "snapshot"

// Index はトップページ（ライブ配信と最近のクリップ）を表示する
func (h *Handler) Index(c *gin.Context) {
	recent, err := h.clips.Recent(h.config.Storage.IndexClipCount)
	if err != nil {
		log.Printf("クリップ一覧の取得に失敗: %v", err)
		recent = nil
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Clips": recent,
	})
}

// Gallery はページ分割されたギャラリーを表示する
func (h *Handler) Gallery(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	result, err := h.clips.GetPage(page, h.config.Storage.GalleryPageSize)
	if err != nil {
		log.Printf("ギャラリーの取得に失敗: %v", err)
		result = clips.Page{Page: page}
	}

	c.HTML(http.StatusOK, "gallery.html", gin.H{
		"Clips":      result.Clips,
		"Page":       result.Page,
		"TotalPages": result.TotalPages,
		"PrevPage":   result.Page - 1,
		"NextPage":   result.Page + 1,
		"Subtitle":   "All Clips",
	})
}

// Play はクリップ再生ページを表示する
func (h *Handler) Play(c *gin.Context) {
	filename := c.Param("filename")
	if err := clips.ValidateFilename(filename); err != nil {
		c.String(http.StatusBadRequest, "Invalid filename")
		return
	}

	label := clips.HumanLabel(filename)
	c.HTML(http.StatusOK, "player.html", gin.H{
		"Filename": filename,
		"Label":    label,
		"Subtitle": label,
	})
}

// SettingsPage は設定フォームを表示する
func (h *Handler) SettingsPage(c *gin.Context) {
	current := h.settings.Get()
	c.HTML(http.StatusOK, "settings.html", gin.H{
		"Sensitivity": current.Sensitivity,
		"Duration":    current.ClipDuration,
		"Subtitle":    "Settings",
	})
}

// SettingsUpdate は設定フォームの送信を処理する
func (h *Handler) SettingsUpdate(c *gin.Context) {
	sensitivity, err := strconv.Atoi(c.PostForm("sensitivity"))
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid input")
		return
	}

	duration, err := strconv.Atoi(c.PostForm("duration"))
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid input")
		return
	}

	updated := settings.Settings{
		Sensitivity:  sensitivity,
		ClipDuration: duration,
	}
	if err := h.settings.Update(updated); err != nil {
		c.String(http.StatusBadRequest, "Invalid input")
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Status はコンポーネント状態を信号色で返す
func (h *Handler) Status(c *gin.Context) {
	recorderStatus := "green"
	if h.recorder.Recording() {
		recorderStatus = "yellow"
	}

	eventLogStatus := "green"
	if h.events == nil {
		eventLogStatus = "red"
	}

	c.JSON(http.StatusOK, gin.H{
		"app_server": "green",
		"streamer":   string(h.stream.GetStatus()),
		"recorder":   recorderStatus,
		"event_log":  eventLogStatus,
	})
}

// Delete はクリップをソフト削除する
func (h *Handler) Delete(c *gin.Context) {
	filename := c.Param("filename")

	if err := clips.ValidateFilename(filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid filename.",
		})
		return
	}

	if err := h.clips.Delete(filename); err != nil {
		log.Printf("%s の削除に失敗: %v", filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": filename,
	})
}

// Events は動体検知イベントの履歴をJSONで返す
func (h *Handler) Events(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "イベント履歴は利用できません",
		})
		return
	}

	events, err := h.events.Recent(50)
	if err != nil {
		log.Printf("イベント履歴の取得に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "イベント履歴の取得に失敗しました",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
	})
}

// EventsPage は動体検知イベントの履歴ページを表示する
func (h *Handler) EventsPage(c *gin.Context) {
	type eventView struct {
		Label    string
		Score    string
		ClipFile string
	}

	var views []eventView
	if h.events != nil {
		events, err := h.events.Recent(50)
		if err != nil {
			log.Printf("イベント履歴の取得に失敗: %v", err)
		}
		for _, event := range events {
			views = append(views, eventView{
				Label:    event.OccurredAt.Format("2006-01-02 15:04:05"),
				Score:    strconv.FormatFloat(event.Score, 'f', 2, 64),
				ClipFile: event.ClipFile,
			})
		}
	}

	c.HTML(http.StatusOK, "events.html", gin.H{
		"Events":   views,
		"Subtitle": "Motion Events",
	})
}

// Snapshot は最新の検知フレームをJPEGで返す
// 短時間のキャッシュで連続リクエストの負荷を抑える
func (h *Handler) Snapshot(c *gin.Context) {
	if cached, found := h.snapshots.Get(snapshotCacheKey); found {
		c.Data(http.StatusOK, "image/jpeg", cached.([]byte))
		return
	}

	frame, ok := h.stream.LatestFrame()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "スナップショットはまだ利用できません",
		})
		return
	}

	h.snapshots.Set(snapshotCacheKey, frame, cache.DefaultExpiration)
	c.Data(http.StatusOK, "image/jpeg", frame)
}

// Health はヘルスチェックエンドポイント
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
