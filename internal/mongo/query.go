package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// translate maps an engine-agnostic query onto a native filter and find
// options. Filters or sorts that are not objects are dropped rather than
// rejected. opts is nil when neither pagination nor sort applies, leaving the
// engine to return the full result set in natural order.
func translate(filters, sortSpec any, p *types.Pagination) (filter bson.D, opts *options.FindOptions) {
	filter = bson.D{}
	if filters != nil {
		if d, err := toDocument(filters); err == nil {
			filter = d
		}
	}

	var sortDoc bson.D
	if sortSpec != nil {
		if d, err := toDocument(sortSpec); err == nil {
			sortDoc = d
		}
	}

	if p.Bounded() {
		skip, limit := p.Window()
		opts = options.Find().SetSkip(skip).SetLimit(limit)
		if sortDoc != nil {
			opts.SetSort(sortDoc)
		}
		return filter, opts
	}

	if sortDoc != nil {
		opts = options.Find().SetSort(sortDoc)
	}
	return filter, opts
}
