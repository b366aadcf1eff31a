// usertype.go
package processor

import (
	"RentalDashboard/src/rental"
)

// UserTypeUsage 某分区内非注册/注册用户总数
type UserTypeUsage struct {
	Partition  rental.Partition `json:"partition"`
	Casual     int              `json:"casual"`
	Registered int              `json:"registered"`
}

// Total casual + registered
func (u UserTypeUsage) Total() int { return u.Casual + u.Registered }

// UserTypeComparison 按 is_working_day 划分 Weekday/Weekend，分别对 casual 和 registered 求和
// 两个分区总是都会输出，没有记录的分区为0
func UserTypeComparison(t *rental.Table) ([]UserTypeUsage, error) {
	df, err := withDerived(t, derivation{colPartition, func(r rental.Record) (string, error) {
		return string(r.Partition()), nil
	}})
	if err != nil {
		return nil, err
	}

	groups, err := groupsOf(df, colPartition)
	if err != nil {
		return nil, err
	}

	sums := make(map[rental.Partition]UserTypeUsage, len(groups))
	for _, group := range groups {
		casual, err := sumOf(group, rental.ColCasual)
		if err != nil {
			return nil, err
		}
		registered, err := sumOf(group, rental.ColRegistered)
		if err != nil {
			return nil, err
		}
		p := rental.Partition(firstOf(group, colPartition))
		sums[p] = UserTypeUsage{Partition: p, Casual: casual, Registered: registered}
	}

	out := make([]UserTypeUsage, 0, 2)
	for _, p := range rental.Partitions() {
		u, ok := sums[p]
		if !ok {
			u = UserTypeUsage{Partition: p}
		}
		out = append(out, u)
	}
	return out, nil
}
