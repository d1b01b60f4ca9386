package model

type RegisterRequest struct {
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Email         string `json:"email"`
	Password      string `json:"password"`
}

type RegisterResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetMeRequest struct{}

type GetMeResponse struct {
	User User `json:"user"`
}

type EditMeRequest struct {
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Bio           string `json:"bio"`
}

type EditMeResponse struct {
	User User `json:"user"`
}

type VerifyEmailRequest struct {
	Code string `json:"code"`
}

type VerifyEmailResponse struct{}

type BlockUserRequest struct {
	UserID int64 `json:"user_id,string"`
}

type BlockUserResponse struct{}

type UnblockUserRequest struct {
	UserID int64 `json:"user_id,string"`
}

type UnblockUserResponse struct{}

type CreateBotRequest struct {
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Bio           string `json:"bio"`
}

type CreateBotResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// DeleteBotRequest deletes a bot. A zero BotID means the calling bot itself.
type DeleteBotRequest struct {
	BotID int64 `json:"bot_id,string"`
}

type DeleteBotResponse struct{}
