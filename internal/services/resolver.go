package services

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"helpdesk_backend/internal/models"
	"helpdesk_backend/internal/repositories"
	"helpdesk_backend/pkg/apperrors"
)

type cacheKey struct {
	role models.Role
	id   string
}

// ProfileResolver разрешает id участника в отображаемую личность.
// Кэш живет в рамках сессии и не протухает; новая сессия начинает с
// пустого кэша. Параллельные промахи по одному ключу схлопываются в
// один удаленный запрос.
type ProfileResolver struct {
	repo repositories.ProfileRepository

	mu    sync.RWMutex
	cache map[cacheKey]models.Identity
	group singleflight.Group
}

func NewProfileResolver(repo repositories.ProfileRepository) *ProfileResolver {
	return &ProfileResolver{
		repo:  repo,
		cache: make(map[cacheKey]models.Identity),
	}
}

// Resolve возвращает личность участника по (role, id). Таблица выбирается
// по переданной роли. При промахе по пользователю строится синтетическая
// личность из auth-утверждений и кэшируется; промах по оператору отдает
// плейсхолдер без кэширования.
func (r *ProfileResolver) Resolve(ctx context.Context, id string, role models.Role) (models.Identity, error) {
	key := cacheKey{role: role, id: id}

	r.mu.RLock()
	identity, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return identity, nil
	}

	result, err, _ := r.group.Do(string(role)+":"+id, func() (interface{}, error) {
		return r.lookup(ctx, id, role)
	})
	if err != nil {
		return models.PlaceholderIdentity(id, role), err
	}
	return result.(models.Identity), nil
}

func (r *ProfileResolver) lookup(ctx context.Context, id string, role models.Role) (models.Identity, error) {
	// Кэш мог заполниться, пока запрос ждал в singleflight
	key := cacheKey{role: role, id: id}
	r.mu.RLock()
	identity, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return identity, nil
	}

	switch role {
	case models.RoleAdmin:
		profile, err := r.repo.FindAdminByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrProfileNotFound) {
				// Для операторов синтеза нет: плейсхолдер не кэшируется
				return models.Identity{}, apperrors.ResolutionMiss(string(role), id)
			}
			return models.Identity{}, apperrors.BackendError(err, "admin_profiles")
		}
		return r.store(key, models.IdentityFromAdmin(profile)), nil

	default:
		profile, err := r.repo.FindUserByID(ctx, id)
		if err == nil {
			return r.store(key, models.IdentityFromUser(profile)), nil
		}
		if !errors.Is(err, repositories.ErrProfileNotFound) {
			return models.Identity{}, apperrors.BackendError(err, "user_profiles")
		}

		// Fallback: best-effort утверждения из auth-записи. Результат
		// кэшируется, чтобы не повторять fallback на каждый вызов.
		email, err := r.repo.FindAuthEmail(ctx, id)
		if err != nil && !errors.Is(err, repositories.ErrAuthNotFound) {
			return models.Identity{}, apperrors.BackendError(err, "auth.users")
		}
		return r.store(key, models.SynthesizedIdentity(id, email)), nil
	}
}

func (r *ProfileResolver) store(key cacheKey, identity models.Identity) models.Identity {
	// Запись идемпотентна: гонка двух одинаковых ответов безвредна
	r.mu.Lock()
	r.cache[key] = identity
	r.mu.Unlock()
	return identity
}

// CacheSize возвращает число закэшированных личностей
func (r *ProfileResolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
