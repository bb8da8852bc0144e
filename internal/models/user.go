package models

type UserInfo struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	ProfileImage  string `json:"profile_image,omitempty"`
	LoginProvider string `json:"login_provider"`
	Verifier      string `json:"verifier,omitempty"`
}
