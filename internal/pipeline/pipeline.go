package pipeline

import (
	"strconv"

	"StreamSpectra/internal/config"
	"StreamSpectra/internal/expression"
	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/feature"
	"StreamSpectra/internal/model"
	"StreamSpectra/internal/operator/eh"
	"StreamSpectra/internal/operator/filter"
	"StreamSpectra/internal/operator/identity"
	"StreamSpectra/internal/operator/topk"
	"StreamSpectra/internal/subscriber"
)

// Registrar is the producer the operator graph hangs off: the shuffle in a
// live run, the file reader in create-features mode.
type Registrar interface {
	Register(c fabric.Consumer[*model.VastNetflow])
}

// Gate is the match filter at the end of the operator graph.
type Gate = filter.Filter[*model.VastNetflow]

// ehColumn names one windowed estimate over one numeric column. All of them
// key by destination IP.
type ehColumn struct {
	identifier string
	value      model.ValueFunc[*model.VastNetflow]
	variance   bool
}

var ehColumns = []ehColumn{
	{"varSrcTotalBytes", model.SrcTotalBytesValue, true},
	{"averageDestTotalBytes", model.DestTotalBytesValue, false},
	{"averageSrcPayloadBytes", model.SrcPayloadBytesValue, false},
	{"averageDestPayloadBytes", model.DestPayloadBytesValue, false},
	{"varDestPayloadBytes", model.DestPayloadBytesValue, true},
	{"averageSrcPacketCount", model.SrcPacketCountValue, false},
	{"averageDestPacketCount", model.DestPacketCountValue, false},
	{"varDestPacketCount", model.DestPacketCountValue, true},
}

// TopKIdentifier names the heavy-hitter feature the filter probes.
const TopKIdentifier = "top2"

func destPortValue(t *model.VastNetflow) string {
	return strconv.Itoa(t.DestPort)
}

// Build wires the full operator graph onto the given producer: the label
// identity, the windowed estimators, the destination-port top-k and the
// match filter. When sub is non-nil the label and estimator outputs are also
// routed into it as feature columns.
//
// The returned filter is the downstream producer; callers register their
// sinks on it.
func Build(producer Registrar, featureMap *feature.Map,
	sub *subscriber.Subscriber, cfg *config.Config) *Gate {
	nodeId := cfg.Node.NodeId
	n := uint64(cfg.Window.N)

	label := identity.New(nodeId, featureMap, "label",
		model.LabelValue, model.DestIPKey)
	producer.Register(label)
	if sub != nil {
		sub.RegisterColumn("label")
		label.Subscribe(sub)
	}

	for _, col := range ehColumns {
		if col.variance {
			op := eh.NewVariance(n, 2, nodeId, featureMap, col.identifier,
				col.value, model.DestIPKey)
			producer.Register(op)
			if sub != nil {
				sub.RegisterColumn(col.identifier)
				op.Subscribe(sub)
			}
		} else {
			op := eh.NewAve(n, 2, nodeId, featureMap, col.identifier,
				col.value, model.DestIPKey)
			producer.Register(op)
			if sub != nil {
				sub.RegisterColumn(col.identifier)
				op.Subscribe(sub)
			}
		}
	}

	top2 := topk.New(cfg.Window.N, cfg.Window.B, cfg.Window.K, nodeId,
		featureMap, TopKIdentifier, destPortValue, model.DestIPKey)
	producer.Register(top2)

	// Matches are destinations whose two most common server ports do not
	// dominate the traffic: top2[0] + top2[1] < threshold.
	expr := expression.New(featureMap,
		expression.Func{Identifier: TopKIdentifier, Project: feature.Frequency(0)},
		expression.Add,
		expression.Func{Identifier: TopKIdentifier, Project: feature.Frequency(1)},
		expression.LessThan,
		expression.Number(cfg.Filter.Threshold),
	)
	gate := filter.New(expr, nodeId, cfg.Filter.Identifier,
		model.DestIPKey, cfg.Filter.QueueLength)
	producer.Register(gate)

	return gate
}
