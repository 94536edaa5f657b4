package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterBuilderChaining(t *testing.T) {
	filter := NewFilter().
		Eq("receiver_id", "42").
		Eq("is_read", false).
		Build()

	assert.Equal(t, bson.M{"receiver_id": "42", "is_read": false}, filter)
}

func TestFilterBuilderObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	filter := NewFilter().ObjectID("conversation_id", id.Hex()).Build()
	assert.Equal(t, id, filter["conversation_id"])

	// an unparsable hex leaves the field out instead of matching nothing
	filter = NewFilter().ObjectID("conversation_id", "not-hex").Build()
	_, present := filter["conversation_id"]
	assert.False(t, present)
}

func TestFilterBuilderObjectIDsSkipsBadIDs(t *testing.T) {
	good := primitive.NewObjectID()
	filter := NewFilter().ObjectIDs("_id", []string{good.Hex(), "garbage"}).Build()

	in, ok := filter["_id"].(bson.M)
	require.True(t, ok)
	ids, ok := in["$in"].([]primitive.ObjectID)
	require.True(t, ok)
	assert.Equal(t, []primitive.ObjectID{good}, ids)
}

func TestFilterBuilderOr(t *testing.T) {
	branches := []bson.M{
		{"participant_a": "42"},
		{"participant_b": "42"},
	}
	filter := NewFilter().Or(branches...).Build()
	assert.Equal(t, branches, filter["$or"])

	// no branches means no $or clause at all
	assert.NotContains(t, NewFilter().Or().Build(), "$or")
}
