package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

type fakeAPI struct {
	item    map[string]types.AttributeValue
	updates []*dynamodb.UpdateItemInput
	err     error
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.item = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestStore_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s := NewWithAPI(api, Config{Table: "t"})

	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	in := &models.Configuration{
		BrideName: "Anna",
		GuestList: []models.GuestEntry{{Name: "Jane", Guests: "2", Attending: models.AttendingYes, ExtraGuestNames: []string{"Tom"}}},
		Guestbook: []models.GuestbookMessage{{ID: "m", Name: "X", Message: "hi", Reactions: map[string]int{"🎉": 3}}},
	}
	require.NoError(t, s.Write(ctx, in))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "main"}, api.item[KeyAttribute])

	doc, err := s.Read(ctx)
	require.NoError(t, err)
	_, hasKey := doc[KeyAttribute]
	assert.False(t, hasKey)

	out, err := doc.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Anna", out.BrideName)
	assert.Equal(t, 2, out.GuestList[0].HeadCount())
	assert.Equal(t, 3, out.Guestbook[0].Reactions["🎉"])
}

func TestStore_AppendUsesListAppend(t *testing.T) {
	api := &fakeAPI{}
	s := NewWithAPI(api, Config{Table: "t", DocumentID: "doc"})

	require.NoError(t, s.Append(context.Background(), models.FieldGuestList, models.GuestEntry{Name: "Jane", Guests: "1"}))
	require.Len(t, api.updates, 1)
	in := api.updates[0]
	assert.Equal(t, "SET #f = list_append(if_not_exists(#f, :empty), :v)", aws.ToString(in.UpdateExpression))
	assert.Equal(t, models.FieldGuestList, in.ExpressionAttributeNames["#f"])

	list, ok := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	require.Len(t, list.Value, 1)
	m, ok := list.Value[0].(*types.AttributeValueMemberM)
	require.True(t, ok)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Jane"}, m.Value["name"])
}

func TestStore_PatchBuildsSetExpression(t *testing.T) {
	api := &fakeAPI{}
	s := NewWithAPI(api, Config{})

	require.NoError(t, s.Patch(context.Background(), models.Patch{models.FieldSyncID: "9", models.FieldLastSaved: "now"}))
	in := api.updates[0]
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1", aws.ToString(in.UpdateExpression))
	assert.Equal(t, models.FieldLastSaved, in.ExpressionAttributeNames["#f0"])
	assert.Equal(t, models.FieldSyncID, in.ExpressionAttributeNames["#f1"])

	assert.ErrorIs(t, s.Patch(context.Background(), models.Patch{"nope": 1}), models.ErrUnknownField)
}

func TestStore_AccessDeniedMapsToPermissionDenied(t *testing.T) {
	api := &fakeAPI{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"}}
	s := NewWithAPI(api, Config{})

	_, err := s.Read(context.Background())
	assert.ErrorIs(t, err, storage.ErrPermissionDenied)
}

func TestStore_ClearedFieldsReadBackEmpty(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	s := NewWithAPI(api, Config{Table: "t"})

	require.NoError(t, s.Write(ctx, &models.Configuration{BrideName: "Anna", Colors: []string{}}))
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{}}, api.item["colors"])
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{}}, api.item["sectionOrder"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: ""}, api.item["theme"])

	doc, err := s.Read(ctx)
	require.NoError(t, err)
	out, err := models.Overlay(models.DefaultConfiguration(), doc)
	require.NoError(t, err)
	assert.Empty(t, out.Colors)
	assert.Empty(t, out.SectionOrder)
	assert.Empty(t, out.Theme)

	require.NoError(t, s.Patch(ctx, models.Patch{models.FieldGuestList: []models.GuestEntry(nil)}))
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{}}, api.updates[0].ExpressionAttributeValues[":v0"])
}
