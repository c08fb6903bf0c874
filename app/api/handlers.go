package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/okastrup/tagsync/app/cfg"
	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/feed"
	"github.com/okastrup/tagsync/app/tasks"
)

const defaultItemLimit = 50

func NewHandler(tagRepo database.TagRepository, itemRepo database.ItemRepository,
	enricher EnricherInterface, syncer tasks.TagSyncer,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		tagRepo:   tagRepo,
		itemRepo:  itemRepo,
		enricher:  enricher,
		syncer:    syncer,
		scheduler: scheduler,
		startedAt: time.Now(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   cfg.Get().Version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}

	if tagCount, err := h.tagRepo.GetTagCount(); err == nil {
		stats["tags"] = tagCount
	}
	if itemCount, err := h.itemRepo.GetItemCount(); err == nil {
		stats["items"] = itemCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListTags(c *gin.Context) {
	tags, err := h.tagRepo.GetTags()
	if err != nil {
		slog.Error("Database error", "operation", "get_tags", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(tags))
	for i := range tags {
		out = append(out, tagInfo(&tags[i]))
	}

	c.JSON(http.StatusOK, gin.H{"tags": out})
}

func (h *Handler) GetTag(c *gin.Context) {
	tag, ok := h.lookupTag(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, tagInfo(tag))
}

func (h *Handler) GetTagItems(c *gin.Context) {
	tag, ok := h.lookupTag(c)
	if !ok {
		return
	}

	limit := defaultItemLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	items, err := h.itemRepo.GetItemsByTag(tag.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "tag", tag.Slug, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	refs := make([]*database.Item, len(items))
	for i := range items {
		refs[i] = &items[i]
	}
	h.enricher.ExtendAll(c.Request.Context(), refs, feed.Options{})

	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range refs {
		out = append(out, itemInfo(item, false))
	}

	c.JSON(http.StatusOK, gin.H{
		"tag":   tag.Slug,
		"items": out,
	})
}

func (h *Handler) GetItem(c *gin.Context) {
	slug := c.Param("slug")

	item, err := h.itemRepo.GetItemBySlug(slug)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item", slug, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	if _, err := h.enricher.ExtendOne(c.Request.Context(), item, feed.Options{IncludeBody: true}); err != nil {
		slog.Warn("Failed to extend item", "item", slug, "error", err)
	}

	c.JSON(http.StatusOK, itemInfo(item, true))
}

func (h *Handler) TriggerSync(c *gin.Context) {
	tag, ok := h.lookupTag(c)
	if !ok {
		return
	}

	task := tasks.NewSyncTagTask(tag.ID, tag.Slug, h.tagRepo, h.syncer)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue sync task", "tag", tag.Slug, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "queued",
		"tag":     tag.Slug,
		"task_id": task.GetID(),
	})
}

func (h *Handler) lookupTag(c *gin.Context) (*database.Tag, bool) {
	slug := c.Param("slug")

	tag, err := h.tagRepo.GetTagBySlug(slug)
	if err != nil {
		slog.Error("Database error", "operation", "get_tag", "tag", slug, "error", err)
		c.Status(http.StatusInternalServerError)
		return nil, false
	}
	if tag == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return nil, false
	}
	return tag, true
}

func tagInfo(tag *database.Tag) map[string]interface{} {
	info := map[string]interface{}{
		"id":          tag.ID,
		"name":        tag.Name,
		"slug":        tag.Slug,
		"description": tag.Description,
		"priority":    tag.Priority,
	}
	if tag.Synced != nil {
		info["synced"] = tag.Synced.Format(time.RFC3339)
	}
	if len(tag.Image.Variants) > 0 {
		info["image"] = tag.Image
	}
	return info
}

func itemInfo(item *database.Item, includeBody bool) map[string]interface{} {
	info := map[string]interface{}{
		"id":          item.ID,
		"slug":        item.Slug,
		"type":        item.TypeSlug,
		"title":       item.Title,
		"supertitle":  item.Supertitle,
		"description": item.Description,
		"website":     item.Website,
		"upvotes":     item.Upvotes,
		"downvotes":   item.Downvotes,
		"views":       item.Views,
	}
	if item.PublishedAt != nil {
		info["published_at"] = item.PublishedAt.Format(time.RFC3339)
	}
	if item.Author.Name != "" {
		info["author"] = item.Author
	}
	if item.Image.Source != "" {
		info["image"] = item.Image
	}
	if includeBody {
		info["body"] = item.Body
	}
	return info
}
