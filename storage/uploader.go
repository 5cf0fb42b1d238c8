package storage

import (
	"context"
	"fmt"
	"io"
)

// UploadResult описывает размещенный объект.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader — внешнее хранилище архивов. Реализация может отсутствовать:
// сервисы принимают nil и пропускают архивирование.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// FinalStandingsKey — ключ архива итоговой таблицы турнира. Ключ стабилен:
// повторное архивирование перезаписывает объект, а удаление турнира может
// убрать архив, не зная истории выгрузок.
func FinalStandingsKey(tournament string) string {
	return fmt.Sprintf("standings/%s/final.json", tournament)
}
