package links

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/models"
)

func TestLockConflictsWhenNeighbourhoodGrows(t *testing.T) {
	f := newFixture(t)
	target := f.swPort(1)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		ls := &linkStore{tx: tx, now: fixedNow, opID: "op-1", actor: "alice"}
		first, err := ls.discover([]Endpoint{target})
		require.NoError(t, err)
		held, err := ls.lockRows(first)
		require.NoError(t, err)

		_, err = ls.recheck([]Endpoint{target}, held)
		require.NoError(t, err, "unchanged neighbourhood passes")

		// Another writer points patch port 3 at the target after locking.
		require.NoError(t, tx.Table("patch_ports").
			Where("panel_id = ? AND port_number = ?", f.patch.ID, 3).
			Updates(map[string]any{
				"counterpart_kind": target.Kind,
				"counterpart_id":   target.ID,
				"counterpart_port": target.Port,
			}).Error)

		_, err = ls.recheck([]Endpoint{target}, held)
		return err
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
}

func TestConcurrentConnectDisconnectKeepsLinksReciprocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	copperSw := []Endpoint{f.swPort(1), f.swPort(2), f.swPort(3), f.swPort(4)}
	copperPanel := []Endpoint{f.patchPort(1), f.patchPort(2), f.patchPort(3), f.patchPort(4)}
	fiberSw := []Endpoint{f.swPort(49), f.swPort(50)}
	fiberPanel := []Endpoint{f.fiberPort(1), f.fiberPort(2)}
	all := append(append(append(append([]Endpoint{}, copperSw...), copperPanel...), fiberSw...), fiberPanel...)

	const workers, opsPerWorker = 6, 25
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		rnd := rand.New(rand.NewSource(int64(w + 1)))
		g.Go(func() error {
			for i := 0; i < opsPerWorker; i++ {
				var err error
				switch rnd.Intn(3) {
				case 0:
					_, err = f.svc.Connect(ctx, copperSw[rnd.Intn(len(copperSw))], copperPanel[rnd.Intn(len(copperPanel))], "worker")
				case 1:
					_, err = f.svc.Connect(ctx, fiberPanel[rnd.Intn(len(fiberPanel))], fiberSw[rnd.Intn(len(fiberSw))], "worker")
				default:
					_, err = f.svc.Disconnect(ctx, all[rnd.Intn(len(all))], "worker")
				}
				if err != nil && !apperr.Is(err, apperr.KindConflict) {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	f.assertReciprocal(t)
	for _, e := range all {
		st, err := f.svc.Lookup(ctx, e)
		require.NoError(t, err)
		if st.Counterpart != nil {
			assert.True(t, st.Reciprocal, "%s -> %s is one-sided", e, *st.Counterpart)
			assert.Equal(t, models.StatusActive, st.Status)
		}
	}
}
