package order

import "fmt"

// StateTransition 状态转换
type StateTransition struct {
	From Status
	To   Status
}

// StateMachine 订单状态机
type StateMachine struct {
	transitions map[StateTransition]bool
}

// NewStateMachine 创建新的状态机
func NewStateMachine() *StateMachine {
	sm := &StateMachine{
		transitions: make(map[StateTransition]bool),
	}
	sm.initializeTransitions()
	return sm
}

// initializeTransitions 初始化所有合法的状态转换
func (sm *StateMachine) initializeTransitions() {
	legalTransitions := []StateTransition{
		// 没有显式确认消息：未收到错误即视为已挂出
		{StatusPending, StatusResting},
		{StatusPending, StatusPartiallyFilled},
		{StatusPending, StatusDone},

		{StatusResting, StatusPartiallyFilled},
		{StatusResting, StatusDone},

		{StatusPartiallyFilled, StatusDone},

		// DONE 为终态
	}

	for _, t := range legalTransitions {
		sm.transitions[t] = true
	}
}

// ValidateTransition 验证状态转换是否合法
func (sm *StateMachine) ValidateTransition(from, to Status) error {
	// 相同状态允许（幂等性，多次部分成交）
	if from == to {
		return nil
	}
	if !sm.transitions[StateTransition{From: from, To: to}] {
		return fmt.Errorf("illegal state transition: %s -> %s", from, to)
	}
	return nil
}

// IsFinalState 判断是否是终态
func (sm *StateMachine) IsFinalState(status Status) bool {
	return status == StatusDone
}

// CanCancel 判断当前状态下是否可以撤单
func (sm *StateMachine) CanCancel(status Status) bool {
	switch status {
	case StatusPending, StatusResting, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}
