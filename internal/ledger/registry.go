package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"tallytools/internal/gst"
	"tallytools/internal/logger"
)

// Ledger groups used in the masters document. Tally resolves parents by
// exact name, so these must match the built-in group names.
const (
	GroupSundryCreditors  = "Sundry Creditors"
	GroupDutiesAndTaxes   = "Duties & Taxes"
	GroupPurchaseAccounts = "Purchase Accounts"
)

// EntityKind distinguishes the categories of ledger entities the registry owns.
type EntityKind string

const (
	KindVendor   EntityKind = "vendor"
	KindTax      EntityKind = "tax"
	KindPurchase EntityKind = "purchase"
)

// Entity is one unique ledger master. The registry is the single source of
// truth for entity names: both emitters reference entities, never reformat
// names on their own.
type Entity struct {
	Kind  EntityKind
	Key   string // identity key within the kind (GSTIN for vendors, tax type for taxes)
	Name  string // canonical display name, used verbatim in both XML documents
	Group string

	// Vendor-only fields carried onto the ledger master.
	GSTIN     string
	StateName string
}

// taxLedgerNames maps tax types to input-credit ledger display names.
var taxLedgerNames = map[gst.TaxType]string{
	gst.TaxCGST: "Input CGST",
	gst.TaxSGST: "Input SGST",
	gst.TaxIGST: "Input IGST",
}

// PurchaseLedgerName is the expense ledger debited with each invoice's
// taxable value.
const PurchaseLedgerName = "Purchases"

// Registry accumulates the unique ledger entities for one conversion run.
// Registration is idempotent per (kind, key): repeated registrations of the
// same vendor or tax type return the already-created entity. Entities are
// held in first-seen order so emitted masters are stable across runs.
//
// All register operations are serialized by an internal mutex, so the
// one-entity-per-key contract holds even under concurrent registration.
type Registry struct {
	mu        sync.Mutex
	entities  []*Entity
	byKey     map[string]*Entity // "kind/key" -> entity
	usedNames map[string]string  // display name -> owning "kind/key"
	log       zerolog.Logger
}

// NewRegistry creates an empty registry for a single conversion run.
func NewRegistry() *Registry {
	return &Registry{
		byKey:     make(map[string]*Entity),
		usedNames: make(map[string]string),
		log:       logger.WithComponent("ledger-registry"),
	}
}

// RegisterVendor returns the ledger entity for the vendor's identity key,
// creating it on first sight. The display name is derived from the legal
// name; if two different registration keys would normalize to the same
// display name, the later one is suffixed with the last four characters of
// its GSTIN.
func (r *Registry) RegisterVendor(vendor gst.VendorRecord) *Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entityKey(KindVendor, vendor.Key())
	if existing, ok := r.byKey[key]; ok {
		return existing
	}

	name := cleanDisplayName(vendor.LegalName)
	if owner, taken := r.usedNames[name]; taken && owner != key {
		suffixed := disambiguate(name, vendor.Key())
		r.log.Warn().
			Str("name", name).
			Str("gstin", vendor.Key()).
			Str("disambiguated", suffixed).
			Msg("Vendor display name collision, appending GSTIN suffix")
		name = suffixed
	}

	stateName, _ := gst.StateNameForCode(vendor.StateCode)
	entity := &Entity{
		Kind:      KindVendor,
		Key:       vendor.Key(),
		Name:      name,
		Group:     GroupSundryCreditors,
		GSTIN:     vendor.Key(),
		StateName: stateName,
	}
	r.add(key, entity)

	r.log.Debug().
		Str("name", entity.Name).
		Str("gstin", entity.GSTIN).
		Msg("Registered vendor ledger")

	return entity
}

// RegisterTax returns the ledger entity for a tax type, creating it lazily.
// At most one entity exists per tax type regardless of invoice count.
func (r *Registry) RegisterTax(taxType gst.TaxType) (*Entity, error) {
	name, ok := taxLedgerNames[taxType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaxType, taxType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := entityKey(KindTax, string(taxType))
	if existing, ok := r.byKey[key]; ok {
		return existing, nil
	}

	entity := &Entity{
		Kind:  KindTax,
		Key:   string(taxType),
		Name:  name,
		Group: GroupDutiesAndTaxes,
	}
	r.add(key, entity)

	r.log.Debug().Str("name", entity.Name).Msg("Registered tax ledger")
	return entity, nil
}

// RegisterPurchases returns the single purchase expense ledger, creating it
// on first call.
func (r *Registry) RegisterPurchases() *Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entityKey(KindPurchase, PurchaseLedgerName)
	if existing, ok := r.byKey[key]; ok {
		return existing
	}

	entity := &Entity{
		Kind:  KindPurchase,
		Key:   PurchaseLedgerName,
		Name:  PurchaseLedgerName,
		Group: GroupPurchaseAccounts,
	}
	r.add(key, entity)
	return entity
}

// Entities returns all registered entities in first-seen order.
func (r *Registry) Entities() []*Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Entity, len(r.entities))
	copy(out, r.entities)
	return out
}

// VendorCount returns the number of unique vendor entities.
func (r *Registry) VendorCount() int {
	return r.countKind(KindVendor)
}

// TaxCount returns the number of unique tax entities.
func (r *Registry) TaxCount() int {
	return r.countKind(KindTax)
}

func (r *Registry) countKind(kind EntityKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entities {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// add records an entity under its key. Caller must hold r.mu.
func (r *Registry) add(key string, entity *Entity) {
	r.byKey[key] = entity
	r.usedNames[entity.Name] = key
	r.entities = append(r.entities, entity)
}

func entityKey(kind EntityKind, key string) string {
	return string(kind) + "/" + key
}

// cleanDisplayName collapses whitespace and strips characters Tally rejects
// in ledger names.
func cleanDisplayName(name string) string {
	cleaned := strings.Join(strings.Fields(name), " ")
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&', '"', '\'':
			return -1
		}
		return r
	}, cleaned)
	return strings.TrimSpace(cleaned)
}

// disambiguate appends the last four characters of the registration
// identifier to a colliding display name.
func disambiguate(name, gstin string) string {
	suffix := gstin
	if len(gstin) > 4 {
		suffix = gstin[len(gstin)-4:]
	}
	return fmt.Sprintf("%s (%s)", name, suffix)
}
