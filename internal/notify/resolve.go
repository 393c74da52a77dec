package notify

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	log "github.com/sirupsen/logrus"
)

// resolveMentions maps handles to receiver ids. Handles are batched into a
// single directory lookup; a failed lookup resolves to nobody.
func (p *Pipeline) resolveMentions(ctx context.Context, handles []string) []string {
	if len(handles) == 0 {
		return nil
	}

	loader := dataloader.NewBatchedLoader(p.batchUsers,
		dataloader.WithBatchCapacity[string, []string](len(handles)),
		dataloader.WithCache[string, []string](&dataloader.NoCache[string, []string]{}),
	)
	thunks := make([]dataloader.Thunk[[]string], len(handles))
	for i, h := range handles {
		thunks[i] = loader.Load(ctx, h)
	}

	seen := make(map[string]struct{})
	var receivers []string
	for i, thunk := range thunks {
		uids, err := thunk()
		if err != nil {
			log.WithField("handle", handles[i]).Warnf("[notify] mention lookup failed: %v", err)
			continue
		}
		for _, uid := range uids {
			if _, ok := seen[uid]; ok || uid == "" {
				continue
			}
			seen[uid] = struct{}{}
			receivers = append(receivers, uid)
		}
	}
	return receivers
}

func (p *Pipeline) batchUsers(ctx context.Context, handles []string) []*dataloader.Result[[]string] {
	results := make([]*dataloader.Result[[]string], len(handles))
	found, err := p.store.UsersByHandles(ctx, handles)
	for i, h := range handles {
		if err != nil {
			results[i] = &dataloader.Result[[]string]{Error: err}
			continue
		}
		results[i] = &dataloader.Result[[]string]{Data: found[h]}
	}
	return results
}
