package tally

import (
	"github.com/rs/zerolog"
	"tallytools/internal/ledger"
	"tallytools/internal/logger"
)

// MastersEmitter serializes a registry's entities into the masters document.
type MastersEmitter struct {
	companyName string
	log         zerolog.Logger
}

// NewMastersEmitter creates a masters emitter for the given Tally company.
func NewMastersEmitter(companyName string) *MastersEmitter {
	return &MastersEmitter{
		companyName: companyName,
		log:         logger.WithComponent("masters-emitter"),
	}
}

// Emit serializes entities, in the order given, into one masters document.
// Entity names and groups are used verbatim; the emitter never reformats
// them. Output is deterministic for identical input.
func (e *MastersEmitter) Emit(entities []*ledger.Entity) ([]byte, error) {
	messages := make([]Message, 0, len(entities))
	for _, entity := range entities {
		messages = append(messages, Message{
			UDF:    udfNamespace,
			Ledger: ledgerMaster(entity),
		})
	}

	env := newEnvelope(reportMasters, e.companyName, messages)
	out, err := marshalEnvelope(env)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int("ledgers", len(entities)).
		Int("bytes", len(out)).
		Msg("Emitted masters document")

	return out, nil
}

func ledgerMaster(entity *ledger.Entity) *LedgerMaster {
	return &LedgerMaster{
		NameAttr:       entity.Name,
		Action:         actionCreate,
		Name:           entity.Name,
		Parent:         entity.Group,
		PartyGSTIN:     entity.GSTIN,
		StateName:      entity.StateName,
		OpeningBalance: "0",
	}
}
