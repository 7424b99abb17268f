package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationDeriveKey(t *testing.T) {
	tests := []struct {
		name     string
		relation Relation
		source   string
		want     string
	}{
		{
			name:     "plain",
			relation: Relation{Service: "db", Interface: "mysql"},
			source:   "web",
			want:     "web-db-mysql",
		},
		{
			name:     "tagged target",
			relation: Relation{Service: "db", Interface: "mysql", ConnectTo: "replica"},
			source:   "web",
			want:     "web-db#replica-mysql",
		},
		{
			name:     "tagged source",
			relation: Relation{Service: "db", Interface: "mysql", ConnectFrom: "ro"},
			source:   "web",
			want:     "web#ro-db-mysql",
		},
		{
			name:     "explicit key wins",
			relation: Relation{Service: "db", Interface: "mysql", Key: "primary"},
			source:   "web",
			want:     "primary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.relation.DeriveKey(tt.source)
			assert.Equal(t, tt.want, got)
			// Deriving again must not change the key.
			assert.Equal(t, got, tt.relation.DeriveKey(tt.source))
		})
	}
}

func TestRelationKind(t *testing.T) {
	assert.Equal(t, RelationReference, Relation{}.Kind())
	assert.Equal(t, RelationHost, Relation{Relation: "host"}.Kind())
}

func TestResourceIndex(t *testing.T) {
	assert.Equal(t, ResourceIndex("3"), NumericIndex(3))
	assert.True(t, NumericIndex(0).IsNumeric())
	assert.False(t, NamedIndex("keys").IsNumeric())

	n, ok := ResourceIndex("12").Numeric()
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = ResourceIndex("user").Numeric()
	assert.False(t, ok)
}

func TestResourceAddHost(t *testing.T) {
	r := &Resource{Index: "0"}
	r.AddHost("1")
	r.AddHost("1")
	r.AddHost("2")
	assert.Equal(t, []ResourceIndex{"1", "2"}, r.Hosts)
}

func TestRelationRecordEqual(t *testing.T) {
	a := RelationRecord{Interface: "mysql", State: RelationStatePlanned, Target: "1"}
	b := a
	assert.True(t, a.Equal(b))
	b.Target = "2"
	assert.False(t, a.Equal(b))
}
