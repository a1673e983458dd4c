package math

func TransformCreate() *Transform {
	return TransformFromPositionYawScale(NewVec3Zero(), 0, NewVec3One())
}

func TransformFromPosition(position Vec3) *Transform {
	return TransformFromPositionYawScale(position, 0, NewVec3One())
}

func TransformFromPositionYawScale(position Vec3, yaw float32, scale Vec3) *Transform {
	t := &Transform{}
	t.SetPositionYawScale(position, yaw, scale)
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) SetYaw(yaw float32) {
	t.Yaw = yaw
	t.IsDirty = true
}

func (t *Transform) SetPositionYawScale(position Vec3, yaw float32, scale Vec3) {
	t.Position = position
	t.Yaw = yaw
	t.Scale = scale
	t.IsDirty = true
}

// GetLocal returns Scale * RotationY * Translation. A nil transform is the identity.
func (t *Transform) GetLocal() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	if t.IsDirty {
		rt := NewMat4EulerY(t.Yaw).Mul(NewMat4Translation(t.Position))
		t.local = NewMat4Scale(t.Scale).Mul(rt)
		t.IsDirty = false
	}
	return t.local
}

// GetWorld applies the parent chain after the local matrix.
func (t *Transform) GetWorld() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	l := t.GetLocal()
	if t.Parent != nil {
		return l.Mul(t.Parent.GetWorld())
	}
	return l
}
