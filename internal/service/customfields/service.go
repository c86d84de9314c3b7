package customfields

import (
	"fmt"
	"sort"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

// FieldTypeFile тип пользовательского поля с загрузкой файлов
const FieldTypeFile = "file"

// Process обрабатывает пользовательские поля формы бронирования.
//
// Файловые поля раскрываются в список метаданных загруженных файлов;
// в значении поля остаются только имена файлов, содержимое хранится
// отдельно. Остальные поля проходят без изменений.
// Возвращаемый список отсортирован по id поля
func Process(booking *domain.CustomerBooking) ([]domain.UploadedFileInfo, error) {
	var files []domain.UploadedFileInfo

	for fieldID, field := range booking.CustomFields {
		if field.Type != FieldTypeFile {
			continue
		}

		uploaded, names, err := extractFiles(fieldID, field.Value)
		if err != nil {
			return nil, err
		}
		files = append(files, uploaded...)

		field.Value = names
		booking.CustomFields[fieldID] = field
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].FieldID != files[j].FieldID {
			return files[i].FieldID < files[j].FieldID
		}
		return files[i].FileName < files[j].FileName
	})

	return files, nil
}

// extractFiles разбирает значение файлового поля: список объектов
// {fileName, tmpPath}, как его присылает форма загрузки
func extractFiles(fieldID string, value interface{}) ([]domain.UploadedFileInfo, []string, error) {
	if value == nil {
		return nil, nil, nil
	}

	items, ok := value.([]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("%w: field %s: expected file list", ErrInvalidFieldValue, fieldID)
	}

	var (
		files []domain.UploadedFileInfo
		names []string
	)
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("%w: field %s: expected file object", ErrInvalidFieldValue, fieldID)
		}

		fileName, _ := entry["fileName"].(string)
		tmpPath, _ := entry["tmpPath"].(string)
		if fileName == "" {
			return nil, nil, fmt.Errorf("%w: field %s: file name is empty", ErrInvalidFieldValue, fieldID)
		}

		files = append(files, domain.UploadedFileInfo{
			FieldID:  fieldID,
			FileName: fileName,
			TmpPath:  tmpPath,
		})
		names = append(names, fileName)
	}

	return files, names, nil
}
