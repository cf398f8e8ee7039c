package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// nextDocumentNumber produces the next sequential document number in the
// format KIND-YYYY-NNNNN (e.g. PO-2026-00001), scanning the given column for
// the highest number issued this year and probing past collisions with
// concurrent writers.
func nextDocumentNumber(ctx context.Context, db *gorm.DB, model interface{}, column, kind string) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", kind, time.Now().Year())

	var numbers []string
	if err := db.WithContext(ctx).
		Model(model).
		Where(column+" LIKE ?", prefix+"%").
		Order(column + " DESC").
		Limit(1).
		Pluck(column, &numbers).Error; err != nil {
		return "", err
	}

	var nextNum int64 = 1
	if len(numbers) > 0 {
		parts := strings.Split(numbers[0], "-")
		if len(parts) == 3 {
			var num int64
			if _, err := fmt.Sscanf(parts[2], "%d", &num); err == nil {
				nextNum = num + 1
			}
		}
	}

	for i := 0; i < 100; i++ {
		number := fmt.Sprintf("%s%05d", prefix, nextNum)

		var count int64
		if err := db.WithContext(ctx).
			Model(model).
			Where(column+" = ?", number).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
		nextNum++
	}

	return "", fmt.Errorf("could not allocate a unique %s number after 100 attempts", kind)
}
