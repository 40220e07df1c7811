package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation はPostgreSQLの一意制約違反コードです。
const pgUniqueViolation = "23505"

// IsDuplicateKey は err が一意制約違反かどうかを判定します。
// TranslateError 有効時の gorm.ErrDuplicatedKey と、未変換のPostgreSQLエラーの両方を扱います。
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
