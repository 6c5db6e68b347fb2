package identity

import (
	"context"
	"fmt"

	"github.com/tordrt/dbtranscode/internal/model"
	"github.com/tordrt/dbtranscode/internal/names"
)

// Transcode rewrites row from database sourceDBID for insertion into the
// mapper's target database. Every foreign key cell is replaced by the target
// primary key of the referenced row, found through its natural key. The row's
// own key mapping nk → newPK is then recorded and its primary key set to
// newPK. The row is modified in place.
//
// Unresolvable references are reported to the provider's error handler and
// leave the cells unchanged. A referenced table without an identity is an
// error.
func Transcode(ctx context.Context, row *model.Row, nk string, newPK any, sourceDBID string, provider *Provider, mapper KeyMapper) error {
	if row == nil || provider == nil || mapper == nil {
		return fmt.Errorf("row, identities and key mapper are required: %w", model.ErrInvalidArgument)
	}
	table := row.Table()
	// read before the foreign keys are rewritten, pk columns may be fk columns
	sourcePK, err := row.PKValue(ctx)
	if err != nil {
		return fmt.Errorf("failed to transcode %s: %w", table.Name(), err)
	}
	fks, err := table.ForeignKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to transcode %s: %w", table.Name(), err)
	}
	for _, fk := range fks {
		if err := transcodeReference(ctx, row, fk, sourceDBID, provider, mapper); err != nil {
			return err
		}
	}

	if nk != "" {
		mapper.Store(sourceDBID, table.Name(), nk, sourcePK)
		mapper.Store(mapper.TargetID(), table.Name(), nk, newPK)
	}
	return row.SetPKValue(ctx, newPK)
}

func transcodeReference(ctx context.Context, row *model.Row, fk *model.ForeignKey, sourceDBID string, provider *Provider, mapper KeyMapper) error {
	columns := fk.ColumnNames()
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i], _ = row.Value(c)
	}
	if allNil(values) {
		return nil
	}

	referee := fk.Referee()
	if _, ok := provider.Identity(referee.Name()); !ok {
		return fmt.Errorf("no identity defined for %s, referenced by %s: %w", referee.Name(), fk.Name, model.ErrNotFound)
	}
	refPK, err := referee.PKColumnNames(ctx)
	if err != nil {
		return err
	}
	if len(refPK) == 0 {
		return fmt.Errorf("%s, referenced by %s: %w", referee.Name(), fk.Name, model.ErrNoPrimaryKey)
	}

	// position of each referee pk column among the fk columns
	path := model.NewForeignKeyPath(fk)
	end := path.EndColumnNames()
	if len(end) != len(refPK) {
		return fmt.Errorf("%s does not reference the primary key of %s: %w", fk.Name, referee.Name(), model.ErrUnsupportedOperation)
	}
	positions := make([]int, len(refPK))
	ordered := make([]any, len(refPK))
	for i, pkColumn := range refPK {
		positions[i] = -1
		for j, c := range end {
			if names.Equal(c, pkColumn) {
				positions[i] = j
			}
		}
		if positions[i] < 0 {
			return fmt.Errorf("%s does not reference the primary key of %s: %w", fk.Name, referee.Name(), model.ErrUnsupportedOperation)
		}
		ordered[i] = values[positions[i]]
	}
	var sourceKey any = ordered[0]
	if len(ordered) > 1 {
		sourceKey = ordered
	}

	refNK, ok := mapper.NaturalKey(sourceDBID, referee.Name(), sourceKey)
	if !ok {
		provider.ErrorHandler().HandleError(ctx, fmt.Sprintf("Unresolved reference: %s.%s%v -> %s[%s] has no natural key",
			sourceDBID, row.Table().Name(), columns, referee.Name(), keyString(sourceKey)))
		return nil
	}
	targetKey, ok := mapper.Map(ctx, referee.Name(), sourceDBID, refNK)
	if !ok {
		return nil
	}
	targetValues, err := model.SplitKey(targetKey, len(refPK))
	if err != nil {
		return fmt.Errorf("failed to transcode %s: %w", fk.Name, err)
	}
	for i, pos := range positions {
		row.SetValue(columns[pos], targetValues[i])
	}
	return nil
}
