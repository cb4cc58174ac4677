package domain

import "time"

// Restaurant — карточка заведения, которой управляет вендор.
type Restaurant struct {
	// ID назначается хранилищем при вставке и далее неизменен.
	ID string
	// OwnerEmail — проверенный email вендора из identity-шлюза; фиксируется при создании.
	OwnerEmail string
	// Name — публичное название заведения.
	Name string
	// Status — произвольный статус карточки, задаётся вендором.
	Status string
	// Profile хранит произвольные ключ-значения, которые вендор присылает в карточке.
	Profile map[string]any
	// Files — ссылки на файлы, загруженные в blob-хранилище.
	Files []string
	// PaymentAccount — идентификатор платёжного суб-аккаунта; пустой до connect-флоу.
	PaymentAccount string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Connected сообщает, подключён ли платёжный суб-аккаунт.
func (r *Restaurant) Connected() bool {
	return r.PaymentAccount != ""
}

// ValidateInvariants проверяет базовые инварианты карточки и возвращает список замечаний.
func (r *Restaurant) ValidateInvariants() []error {
	var errs []error

	if r.OwnerEmail == "" {
		errs = append(errs, ErrOwnerRequired)
	}
	if r.Name == "" {
		errs = append(errs, ErrNameRequired)
	}

	return errs
}

// CloneProfile возвращает копию профиля, чтобы вызывающая сторона не мутировала оригинал.
func (r *Restaurant) CloneProfile() map[string]any {
	if r.Profile == nil {
		return nil
	}
	clone := make(map[string]any, len(r.Profile))
	for k, v := range r.Profile {
		clone[k] = v
	}
	return clone
}
