package parlor

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/store"
)

// Error codes returned to API clients.
const (
	CodeParlorNotFound   = "parlor-not-found"
	CodeInvalidParlorID  = "invalid-parlor-id"
	CodeInvalidRoomsData = "invalid-rooms-data"
	CodeInvalidRoomData  = "invalid-room-data"
	CodeMalformedBody    = "malformed-body"
)

// User-facing messages.
const (
	MsgParlorNotFound   = "雀荘が見つかりません"
	MsgInvalidParlorID  = "雀荘IDが不正です"
	MsgInvalidRoomsData = "ルーム一覧のデータが不正です"
	MsgInvalidRoomData  = "ルームのデータが不正です"
	MsgMalformedBody    = "リクエストの形式が不正です"

	msgGetFailed    = "雀荘データの取得に失敗しました"
	msgUpdateFailed = "雀荘データの更新に失敗しました"
	msgAddFailed    = "ルームの追加に失敗しました"
	msgListFailed   = "雀荘一覧の取得に失敗しました"
	msgSaveFailed   = "雀荘の登録に失敗しました"
)

func errParlorNotFound() *apperr.Error {
	return apperr.NotFound(CodeParlorNotFound, MsgParlorNotFound)
}

// InvalidParlorID is returned for a missing or malformed parlor id.
func InvalidParlorID() *apperr.Error {
	return apperr.InvalidArgument(CodeInvalidParlorID, MsgInvalidParlorID)
}

// InvalidRoomsData is returned when a room list is missing or not a list.
func InvalidRoomsData() *apperr.Error {
	return apperr.InvalidArgument(CodeInvalidRoomsData, MsgInvalidRoomsData)
}

// InvalidRoomData is returned for a malformed room.
func InvalidRoomData() *apperr.Error {
	return apperr.InvalidArgument(CodeInvalidRoomData, MsgInvalidRoomData)
}

// MalformedBody is returned when a request body is not a JSON object.
func MalformedBody() *apperr.Error {
	return apperr.InvalidArgument(CodeMalformedBody, MsgMalformedBody)
}

// translate converts a store failure into one of the service error kinds.
// Errors that already carry a kind pass through unchanged.
func translate(err error, op, parlorID, message string) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrNotFound):
		return errParlorNotFound()
	case errors.Is(err, store.ErrInvalidPath):
		return InvalidParlorID()
	}
	logrus.WithFields(logrus.Fields{
		"op":        op,
		"parlor_id": parlorID,
	}).WithError(err).Error("parlor store failure")
	return apperr.Internal(message, err)
}
