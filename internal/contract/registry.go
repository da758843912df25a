package contract

import (
	"context"
	"strconv"
	"sync"

	"github.com/misterplus/btdex/internal/escrow"
	"github.com/misterplus/btdex/internal/interfaces"
	"github.com/misterplus/btdex/internal/lib"
	"github.com/misterplus/btdex/internal/repositories/ledger"
)

// Registry is the in-memory map of every escrow instance seen on the
// ledger. Discovery is append-only; entries are mutated in place and never
// removed.
type Registry struct {
	// deps
	client    ledger.Client
	templates Templates
	log       interfaces.ILogger

	instances *lib.Collection[*Instance]

	mu      sync.Mutex
	cursors map[escrow.ContractType]ledger.Cursor
}

func NewRegistry(client ledger.Client, templates Templates, log interfaces.ILogger) *Registry {
	return &Registry{
		client:    client,
		templates: templates,
		instances: lib.NewCollection[*Instance](),
		cursors:   make(map[escrow.ContractType]ledger.Cursor),
		log:       log,
	}
}

// DiscoverSince pulls instances deployed since the last discovery, one
// query per contract type, verifies their code against the template and
// adds them to the registry. The per-type cursor only advances on success,
// and re-adding an already known address is a no-op, so a partially failed
// discovery is safe to repeat.
func (r *Registry) DiscoverSince(ctx context.Context) ([]*Instance, error) {
	var added []*Instance

	for _, template := range r.templates {
		r.mu.Lock()
		cursor := r.cursors[template.Type]
		r.mu.Unlock()

		fresh, newCursor, err := r.client.GetDeployedInstances(ctx, template.CodeHashID, cursor)
		if err != nil {
			return added, err
		}

		for _, data := range fresh {
			trusted := template.Verify(data.MachineCode)
			if !trusted {
				r.log.Warnf("instance %d code does not match the %s template, keeping untrusted", data.Address, template.Type)
			}

			instance, loaded := r.instances.LoadOrStore(NewInstance(template, data, trusted))
			if !loaded {
				added = append(added, instance)
			}
		}

		r.mu.Lock()
		r.cursors[template.Type] = newCursor
		r.mu.Unlock()
	}

	return added, nil
}

func (r *Registry) Get(address escrow.AccountID) (*Instance, bool) {
	return r.instances.Load(strconv.FormatUint(uint64(address), 10))
}

// All returns a point-in-time snapshot of the registry contents
func (r *Registry) All() []*Instance {
	all := make([]*Instance, 0, r.instances.Len())
	r.instances.Range(func(instance *Instance) bool {
		all = append(all, instance)
		return true
	})
	return all
}

func (r *Registry) Len() int {
	return r.instances.Len()
}
