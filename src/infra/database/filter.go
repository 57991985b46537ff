package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/contre95/listenlog/src/music"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// applyComparison adds "column op value" to a new session of q. q itself is
// left untouched.
func applyComparison(q *gorm.DB, column string, op music.Operator, value any) (*gorm.DB, error) {
	switch op {
	case music.OpLess, music.OpEqual, music.OpGreater:
	default:
		return nil, fmt.Errorf("%w: %q", music.ErrInvalidOperator, op)
	}
	if !identifierRe.MatchString(column) {
		return nil, fmt.Errorf("%w: invalid column %q", music.ErrValidation, column)
	}
	return q.Session(&gorm.Session{}).Where("? "+string(op)+" ?", clause.Column{Name: column}, value), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// applyContains adds a case-insensitive substring match on column.
func applyContains(q *gorm.DB, column, value string) *gorm.DB {
	return q.Where(`LOWER(?) LIKE LOWER(?) ESCAPE '\'`, clause.Column{Name: column}, containsPattern(value))
}
