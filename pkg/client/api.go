package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultRequestTimeout = 15 * time.Second

// ErrorKind классифицирует ошибки REST-вызовов: transient повторяется
// очередью, остальные сразу всплывают без повторов.
type ErrorKind string

const (
	KindTransient     ErrorKind = "transient"
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindAuthorization ErrorKind = "authorization"
)

type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%s, status %d): %s", e.Kind, e.Status, e.Message)
}

// Transient сообщает, имеет ли смысл повтор.
func (e *APIError) Transient() bool {
	return e.Kind == KindTransient
}

// Message — серверная форма сообщения (wire-формат REST и канала).
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chatId"`
	CreatedBy uuid.UUID `json:"createdBy"`
	Content   string    `json:"content"`
	FileURL   string    `json:"fileUrl,omitempty"`
	FileType  string    `json:"fileType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessagesPage struct {
	Messages []Message  `json:"messages"`
	Cursor   *uuid.UUID `json:"cursor"`
	HasMore  bool       `json:"hasMore"`
}

type Room struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AdminID     uuid.UUID `json:"adminId"`
	AvatarColor string    `json:"avatarColor"`
	AvatarText  string    `json:"avatarText"`
	LastMessage string    `json:"lastMessage,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RoomsPage struct {
	ChatRooms []Room     `json:"chatRooms"`
	Cursor    *uuid.UUID `json:"cursor"`
	HasMore   bool       `json:"hasMore"`
}

// API — REST-клиент сервера. Все запросы идут с таймаутом: зависший
// вызов не должен блокировать учёт повторов очереди.
type API struct {
	baseURL string
	token   string
	http    *http.Client
	userID  uuid.UUID
}

func NewAPI(baseURL, token string, userID uuid.UUID) *API {
	return &API{
		baseURL: baseURL,
		token:   token,
		userID:  userID,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// UserID — идентификатор пользователя, от имени которого работает клиент.
func (a *API) UserID() uuid.UUID {
	return a.userID
}

func (a *API) do(method, path string, body interface{}, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.http.Do(req)
	if err != nil {
		// Сетевые сбои и таймауты — transient, их повторит очередь.
		return &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{
			Kind:    classifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: payload.Error,
		}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status >= 500:
		return KindTransient
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthorization
	default:
		return KindValidation
	}
}

// SendMessage персистит сообщение на сервере.
func (a *API) SendMessage(chatID uuid.UUID, text string) (*Message, error) {
	var msg Message
	err := a.do(http.MethodPost, "/rooms/"+chatID.String()+"/messages", map[string]string{
		"text":   text,
		"userId": a.userID.String(),
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Messages — страница истории комнаты; cursor == nil даёт свежайшую.
func (a *API) Messages(chatID uuid.UUID, cursor *uuid.UUID) (*MessagesPage, error) {
	path := "/chatroom/" + chatID.String() + "/messages"
	if cursor != nil {
		path += "?cursor=" + cursor.String()
	}
	var page MessagesPage
	if err := a.do(http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Rooms — страница комнат пользователя.
func (a *API) Rooms(cursor *uuid.UUID) (*RoomsPage, error) {
	path := "/chatroom/user/" + a.userID.String()
	if cursor != nil {
		path += "?cursor=" + cursor.String()
	}
	var page RoomsPage
	if err := a.do(http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RequestJoin — заявка на вступление в комнату.
func (a *API) RequestJoin(chatID uuid.UUID) error {
	return a.do(http.MethodPost, "/chatroom/"+chatID.String()+"/request", map[string]string{
		"userId": a.userID.String(),
	}, nil)
}

// ReadStatus — текущий unread-флаг.
func (a *API) ReadStatus(chatID uuid.UUID) (bool, error) {
	var resp struct {
		Unread bool `json:"unread"`
	}
	path := "/chatroom/" + chatID.String() + "/readStatus/" + a.userID.String()
	if err := a.do(http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Unread, nil
}

// MarkRead сбрасывает unread-флаг.
func (a *API) MarkRead(chatID uuid.UUID) error {
	path := "/chatroom/" + chatID.String() + "/readStatus/" + a.userID.String()
	return a.do(http.MethodPut, path, nil, nil)
}
