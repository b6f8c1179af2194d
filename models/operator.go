package models

type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type Operator struct {
	UUID     string `json:"uuid"`
	Login    string `json:"login"`
	Password string `json:"password"`
}
