// Package tier отображает тарифный уровень в числовые лимиты и проверяет квоты.
//
// Таблица лимитов фиксирована и не настраивается в рантайме.
// Тариф всегда берётся из профиля пользователя, значению от клиента не доверяем.
package tier

import (
	"fmt"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Unlimited означает отсутствие ограничения.
const Unlimited = -1

// Limits числовые лимиты тарифа.
type Limits struct {
	MaxFlows        int `json:"max_flows"`
	MaxPosesPerFlow int `json:"max_poses_per_flow"`
}

const (
	// FreeMaxFlows максимальное число неархивных флоу на бесплатном тарифе.
	FreeMaxFlows = 3
	// FreeMaxPosesPerFlow максимальное число поз во флоу на бесплатном тарифе.
	FreeMaxPosesPerFlow = 10
)

var table = map[models.SubscriptionTier]Limits{
	models.TierFree: {MaxFlows: FreeMaxFlows, MaxPosesPerFlow: FreeMaxPosesPerFlow},
	models.TierPaid: {MaxFlows: Unlimited, MaxPosesPerFlow: Unlimited},
}

// For возвращает лимиты тарифа. Неизвестный тариф получает лимиты бесплатного.
func For(t models.SubscriptionTier) Limits {
	if l, ok := table[t]; ok {
		return l
	}
	return table[models.TierFree]
}

// Exceeded сообщает, выходит ли count за limit. Равенство лимиту допустимо.
func Exceeded(count, limit int) bool {
	return limit != Unlimited && count > limit
}

// CheckFlows проверяет, можно ли пользователю иметь count неархивных флоу.
func CheckFlows(t models.SubscriptionTier, count int) error {
	limit := For(t).MaxFlows
	if !Exceeded(count, limit) {
		return nil
	}
	return &models.LimitError{
		Resource: "flows",
		Limit:    limit,
		Count:    count,
		Message:  fmt.Sprintf("Free plan allows up to %d flows. Upgrade to create unlimited flows.", limit),
	}
}

// CheckPosesPerFlow проверяет, можно ли положить count поз в один флоу.
func CheckPosesPerFlow(t models.SubscriptionTier, count int) error {
	limit := For(t).MaxPosesPerFlow
	if !Exceeded(count, limit) {
		return nil
	}
	return &models.LimitError{
		Resource: "poses_per_flow",
		Limit:    limit,
		Count:    count,
		Message:  fmt.Sprintf("Free plan allows up to %d poses per flow. Upgrade to build longer flows.", limit),
	}
}
