package projection

import (
	"chatlink/domain"
	"chatlink/mocks"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoster_Refresh_Is_Idempotent_And_Preserves_Server_Order(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	req := require.New(t)

	serverOrder := []domain.Chat{
		{ID: "c2", Name: "bob", Participants: []string{"u1", "u2"}},
		{ID: "c1", Name: "team", IsGroup: true, Participants: []string{"u1", "u2", "u3"}},
	}
	mockAPI := mocks.NewMockAPI(ctrl)
	mockAPI.EXPECT().Chats(gomock.Any()).Return(serverOrder, nil).Times(2)

	roster := NewRoster(mockAPI)
	req.NoError(roster.Refresh(context.Background()))
	first := roster.List()
	req.NoError(roster.Refresh(context.Background()))
	second := roster.List()

	req.Equal(serverOrder, first)
	req.Equal(first, second)
}

func TestRoster_Refresh_Failure_Retains_Prior_State(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	req := require.New(t)

	chats := []domain.Chat{{ID: "c1", Name: "bob"}}
	mockAPI := mocks.NewMockAPI(ctrl)
	roster := NewRoster(mockAPI)

	mockAPI.EXPECT().Chats(gomock.Any()).Return(chats, nil)
	req.NoError(roster.Refresh(context.Background()))

	mockAPI.EXPECT().Chats(gomock.Any()).Return(nil, fmt.Errorf("backend down"))
	req.Error(roster.Refresh(context.Background()))
	req.Equal(chats, roster.List())
}

func TestRoster_Get_And_Contains(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	req := require.New(t)

	mockAPI := mocks.NewMockAPI(ctrl)
	mockAPI.EXPECT().Chats(gomock.Any()).Return([]domain.Chat{{ID: "c1", Name: "bob"}}, nil)

	roster := NewRoster(mockAPI)
	req.NoError(roster.Refresh(context.Background()))

	chat, ok := roster.Get("c1")
	req.True(ok)
	req.Equal("bob", chat.Name)
	req.False(roster.Contains("c2"))
}

func TestRoster_Reset_Empties_The_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	req := require.New(t)

	mockAPI := mocks.NewMockAPI(ctrl)
	mockAPI.EXPECT().Chats(gomock.Any()).Return([]domain.Chat{{ID: "c1"}}, nil)

	roster := NewRoster(mockAPI)
	req.NoError(roster.Refresh(context.Background()))
	roster.Reset()
	req.Empty(roster.List())
}
