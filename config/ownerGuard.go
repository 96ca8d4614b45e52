package config

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/tradelog_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OwnerGuardPlugin adds owner_id = <context owner> to every query, row scan,
// update and delete on a model with an owner_id column, unless the WHERE
// already carries that exact column equality. String conditions
// such as Where("owner_id = ?") are not inspected and get scoped again.
//
// NOTE:
// - This does NOT apply to Raw SQL queries.
// - Bypass is explicit via appctx.ContextKeySkipOwnerScope.
type OwnerGuardPlugin struct{}

func NewOwnerGuardPlugin() *OwnerGuardPlugin { return &OwnerGuardPlugin{} }

func (p *OwnerGuardPlugin) Name() string { return "owner_guard" }

func (p *OwnerGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("owner_guard:query", ownerGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("owner_guard:row", ownerGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("owner_guard:update", ownerGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("owner_guard:delete", ownerGuardCallback); err != nil {
		return err
	}
	return nil
}

func ownerGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassOwnerScope(ctx) {
		return
	}
	ownerId, ok := ownerIdFromContext(ctx)
	if !ok {
		return
	}
	if db.Statement.Schema == nil || db.Statement.Schema.LookUpField("owner_id") == nil {
		return
	}
	if whereHasOwnerId(db.Statement.Clauses["WHERE"], ownerId) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "owner_id"},
				Value:  ownerId,
			},
		},
	})
}

func ownerIdFromContext(ctx context.Context) (int, bool) {
	v, ok := appctx.GetInt(ctx, appctx.ContextKeyOwnerId)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func shouldBypassOwnerScope(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, appctx.ContextKeySkipOwnerScope)
	return ok && v
}

func whereHasOwnerId(c clause.Clause, ownerId int) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasOwnerId(e, ownerId) {
			return true
		}
	}
	return false
}

func exprHasOwnerId(e clause.Expression, ownerId int) bool {
	switch v := e.(type) {
	case clause.Eq:
		id, ok := v.Value.(int)
		return ok && id == ownerId && colIsOwnerId(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasOwnerId(x, ownerId) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func colIsOwnerId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "owner_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "owner_id")
	default:
		return false
	}
}
