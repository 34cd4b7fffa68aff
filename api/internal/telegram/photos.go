package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"homework-grader/api/internal/util"
)

var fileClient = &http.Client{Timeout: 60 * time.Second}

// Решение может прийти несколькими фото подряд (или альбомом). Страницы
// копятся в solutionSheet, пока ученик не замолчит на sheetQuiet, потом
// склеиваются в одну картинку и уходят на разбор шагов.

func (r *Router) onPhoto(msg tgbotapi.Message) {
	largest := msg.Photo[len(msg.Photo)-1]
	r.queuePage(msg, largest.FileID, "image/jpeg")
}

// onImageDocument — страница, присланная файлом без сжатия.
func (r *Router) onImageDocument(msg tgbotapi.Message) {
	r.queuePage(msg, msg.Document.FileID, msg.Document.MimeType)
}

func sheetKey(msg tgbotapi.Message) string {
	if msg.MediaGroupID != "" {
		return "album:" + msg.MediaGroupID
	}
	return fmt.Sprintf("chat:%d", msg.Chat.ID)
}

func (r *Router) queuePage(msg tgbotapi.Message, fileID, mime string) {
	chatID := msg.Chat.ID
	ctx, cancel := r.context()
	defer cancel()

	page, err := r.fetchPage(ctx, fileID)
	if err != nil {
		r.logger().Warn("page download failed", "chat_id", chatID, "error", err)
		r.SendError(chatID, err)
		return
	}

	key := sheetKey(msg)
	v, _ := sheets.LoadOrStore(key, &solutionSheet{chatID: chatID})
	sh := v.(*solutionSheet)

	sh.mu.Lock()
	if len(sh.pages) >= maxSheetPages {
		sh.mu.Unlock()
		r.send(chatID, fmt.Sprintf("Беру не больше %d страниц решения, эту пропускаю.", maxSheetPages))
		return
	}
	sh.pages = append(sh.pages, page)
	sh.mime = mime
	if sh.flush != nil {
		sh.flush.Stop()
	}
	sh.flush = time.AfterFunc(sheetQuiet, func() { r.gradeSheet(key) })
	pages := len(sh.pages)
	sh.mu.Unlock()

	if pages == 1 {
		r.send(chatID, "📄 Решение получено, проверяю шаги…")
	}
}

func (r *Router) fetchPage(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("ссылка на файл: %w", err)
	}
	return fetchFile(ctx, url)
}

// gradeSheet забирает накопленные страницы и проверяет их как одно решение.
func (r *Router) gradeSheet(key string) {
	v, ok := sheets.LoadAndDelete(key)
	if !ok {
		return
	}
	sh := v.(*solutionSheet)

	sh.mu.Lock()
	pages, mime := sh.pages, sh.mime
	sh.pages = nil
	sh.mu.Unlock()

	if len(pages) == 0 {
		return
	}
	sheet := pages[0]
	if len(pages) > 1 {
		stitched, err := stitchPages(pages)
		if err != nil {
			r.SendError(sh.chatID, fmt.Errorf("не удалось собрать страницы: %w", err))
			return
		}
		sheet, mime = stitched, "image/jpeg"
	}
	r.logger().Debug("solution sheet ready", "chat_id", sh.chatID, "pages", len(pages), "bytes", len(sheet))

	ctx, cancel := r.context()
	defer cancel()
	r.gradeImage(ctx, sh.chatID, sheet, mime)
}

// stitchPages кладёт страницы друг под другом на белый лист в порядке прихода
// и ужимает результат до maxPixels.
func stitchPages(pages [][]byte) ([]byte, error) {
	decoded := make([]image.Image, len(pages))
	width, height := 0, 0
	for i, p := range pages {
		img, err := decodePage(p)
		if err != nil {
			return nil, fmt.Errorf("страница %d: %w", i+1, err)
		}
		decoded[i] = img
		b := img.Bounds()
		width = max(width, b.Dx())
		height += b.Dy()
	}
	if width == 0 || height == 0 {
		return nil, errors.New("пустые страницы")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	top := 0
	for _, img := range decoded {
		b := img.Bounds()
		left := (width - b.Dx()) / 2
		draw.Draw(canvas, image.Rect(left, top, left+b.Dx(), top+b.Dy()), img, b.Min, draw.Over)
		top += b.Dy()
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, fitPixels(canvas, maxPixels), &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// decodePage выбирает декодер по сигнатуре; неизвестное отдаём image.Decode.
func decodePage(b []byte) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch util.SniffMimeForOCR(b) {
	case "JPEG":
		img, err = jpeg.Decode(bytes.NewReader(b))
	case "PNG":
		img, err = png.Decode(bytes.NewReader(b))
	case "PDF":
		return nil, errors.New("PDF не поддерживается, пришли фото")
	default:
		img, _, err = image.Decode(bytes.NewReader(b))
	}
	return img, err
}

func fitPixels(img image.Image, limit int) image.Image {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total <= limit {
		return img
	}
	k := math.Sqrt(float64(limit) / float64(total))
	return downscale(img, max(1, int(float64(b.Dx())*k)), max(1, int(float64(b.Dy())*k)))
}

// downscale — ближайший сосед, для рукописного текста этого хватает.
func downscale(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	for y := range h {
		sy := sb.Min.Y + y*sb.Dy()/h
		for x := range w {
			dst.Set(x, y, src.At(sb.Min.X+x*sb.Dx()/w, sy))
		}
	}
	return dst
}

func fetchFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := fileClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("telegram file: status %d: %s", resp.StatusCode, msg)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxPageBytes {
		return nil, fmt.Errorf("страница больше %d МБ", maxPageBytes>>20)
	}
	return body, nil
}
